// Package fingerprint derives the content-addressed key under which a
// generation request's response is cached. Two requests produce the same key
// exactly when model, input, instructions and the ordered attachment hashes
// all match.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
)

// SchemaVersion participates in every key so the key space rotates when the
// canonical record changes shape.
const SchemaVersion = "v2"

const hashChunkSize = 4096

// HashFile returns the lowercase hex SHA-256 of the file content, streamed
// in small chunks so large attachments never load into memory at once.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFiles hashes each path in request order. An unreadable path
// contributes the path string itself, keeping the key computable; such a key
// will only ever match another request naming the same unreadable path.
func HashFiles(paths []string) []string {
	hashes := make([]string, 0, len(paths))
	for _, path := range paths {
		h, err := HashFile(path)
		if err != nil {
			hashes = append(hashes, path)
			continue
		}
		hashes = append(hashes, h)
	}
	return hashes
}

// canonicalRequest is marshalled with its fields in this exact order; the
// serialized bytes are the hash input, so the order is part of the key
// schema.
type canonicalRequest struct {
	FileHashes    []string `json:"file_hashes"`
	Input         string   `json:"input"`
	Instructions  string   `json:"instructions"`
	Model         string   `json:"model"`
	SchemaVersion string   `json:"schema_version"`
}

// RequestKey builds the deterministic cache key for a generation request.
// Absent instructions hash the same as empty ones; attachment hash order is
// significant.
func RequestKey(modelName, input string, instructions *string, fileHashes []string) string {
	ins := ""
	if instructions != nil {
		ins = *instructions
	}
	if fileHashes == nil {
		fileHashes = []string{}
	}
	record := canonicalRequest{
		FileHashes:    fileHashes,
		Input:         input,
		Instructions:  ins,
		Model:         modelName,
		SchemaVersion: SchemaVersion,
	}
	raw, _ := json.Marshal(record)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
