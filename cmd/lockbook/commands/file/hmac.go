package file

import (
	"encoding/hex"
	"fmt"
)

func decodeHexHMAC(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("--hmac is required with --safe")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --hmac: %w", err)
	}
	return b, nil
}
