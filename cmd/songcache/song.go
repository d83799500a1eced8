package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	songgrpc "github.com/oriys/songcache/internal/grpc"
)

var daemonAddr string

func songCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "song",
		Short: "Save and look up songs on a running daemon",
	}
	cmd.PersistentFlags().StringVar(&daemonAddr, "addr", "localhost:9090", "Daemon gRPC address")
	cmd.AddCommand(songSaveCmd(), songGetCmd())
	return cmd
}

func songSaveCmd() *cobra.Command {
	var title, singer, text string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a song",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := songgrpc.Dial(daemonAddr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := client.SaveSong(ctx, title, singer, text); err != nil {
				return err
			}
			fmt.Println("Saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Song title")
	cmd.Flags().StringVar(&singer, "singer", "", "Singer")
	cmd.Flags().StringVar(&text, "text", "", "Lyrics")

	return cmd
}

func songGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <title>",
		Short: "Look up a song by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := songgrpc.Dial(daemonAddr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			song, ok, err := client.SearchSongByTitle(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("song not found: %s", args[0])
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(song)
		},
	}
}
