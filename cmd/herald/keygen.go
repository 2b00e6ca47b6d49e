package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/xraph/herald/signature"
)

// runKeygen prints a key pair for exercising the endpoint locally. The
// private key is the hex-encoded 32-byte seed.
func runKeygen(_ context.Context, _ config, _ []string) error {
	pub, priv, err := signature.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Printf("HERALD_PUBLIC_KEY=%s\n", pub)
	fmt.Printf("private_key_seed=%s\n", hex.EncodeToString(priv.Seed()))
	return nil
}
