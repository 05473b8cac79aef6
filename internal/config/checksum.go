package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// RunChecksum returns a short, stable checksum of everything that changes
// what a run computes. Log settings, parallelism and export targets are
// left out.
//
// It computes MD5 over the JSON form of the config and returns the first 6
// hex characters (equivalent to `md5sum | cut -c1-6`).
func RunChecksum(cfg *RunConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b)
	hexStr := hex.EncodeToString(sum[:])
	if len(hexStr) > 6 {
		hexStr = hexStr[:6]
	}
	return hexStr, nil
}
