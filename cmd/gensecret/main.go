package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultSecretBytesLen = 32

// Generate SECRET_KEY or WEBHOOK_SECRET value
func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	size := fs.IntP("bytes", "b", defaultSecretBytesLen, "Secret length in bytes")
	prefix := fs.StringP("prefix", "p", "", "Prefix, e.g. 'whsec_' for webhook secrets")
	_ = fs.Parse(os.Args[1:])

	secret, err := generate(*size, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(secret)
}

func generate(size int, prefix string) (string, error) {
	if size < 16 {
		return "", fmt.Errorf("secret must be at least 16 bytes, got %d", size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return prefix + hex.EncodeToString(b), nil
}
