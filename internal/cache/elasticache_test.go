package cache

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
)

func TestIAMTokenGenerator_Token(t *testing.T) {
	creds := credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
	g := newIAMTokenGenerator(creds, "us-east-1", "songs-cache", "songcache-app")
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	token, err := g.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if strings.HasPrefix(token, "http://") {
		t.Fatalf("token must not carry a scheme: %s", token)
	}
	if !strings.HasPrefix(token, "songs-cache/?") {
		t.Fatalf("token must start with the cache name: %s", token)
	}

	u, err := url.Parse("http://" + token)
	if err != nil {
		t.Fatalf("token is not a valid URL: %v", err)
	}
	q := u.Query()
	if q.Get("Action") != "connect" {
		t.Fatalf("expected Action=connect, got %q", q.Get("Action"))
	}
	if q.Get("User") != "songcache-app" {
		t.Fatalf("expected User=songcache-app, got %q", q.Get("User"))
	}
	if q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("expected X-Amz-Expires=900, got %q", q.Get("X-Amz-Expires"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Fatal("expected a signature")
	}
	if !strings.Contains(q.Get("X-Amz-Credential"), "/us-east-1/elasticache/aws4_request") {
		t.Fatalf("unexpected credential scope %q", q.Get("X-Amz-Credential"))
	}
}

func TestIAMTokenGenerator_CredentialsProvider(t *testing.T) {
	creds := credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
	g := newIAMTokenGenerator(creds, "eu-west-1", "songs-cache", "songcache-app")

	user, password, err := g.CredentialsProvider()(context.Background())
	if err != nil {
		t.Fatalf("CredentialsProvider failed: %v", err)
	}
	if user != "songcache-app" {
		t.Fatalf("expected user songcache-app, got %q", user)
	}
	if !strings.Contains(password, "X-Amz-Signature=") {
		t.Fatalf("expected presigned token as password, got %q", password)
	}
}

func TestNewIAMTokenGenerator_RequiresCacheAndUser(t *testing.T) {
	if _, err := NewIAMTokenGenerator(context.Background(), IAMAuthConfig{User: "u", Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without cache name")
	}
	if _, err := NewIAMTokenGenerator(context.Background(), IAMAuthConfig{CacheName: "c", Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without user")
	}
}

func TestNewIAMTokenGenerator_StaticCredentials(t *testing.T) {
	g, err := NewIAMTokenGenerator(context.Background(), IAMAuthConfig{
		CacheName:       "songs-cache",
		User:            "songcache-app",
		Region:          "us-west-2",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewIAMTokenGenerator failed: %v", err)
	}
	token, err := g.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if !strings.Contains(token, "AKIDEXAMPLE") {
		t.Fatalf("expected static access key in credential scope: %s", token)
	}
}
