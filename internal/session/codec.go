package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/m-mizutani/goerr/v2"
)

// Encode serializes v as JSON, gzips it and returns the base64 text.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(ErrDataCorruption, "failed to marshal session payload", goerr.V("error", err.Error()))
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, goerr.Wrap(ErrDataCorruption, "failed to compress session payload", goerr.V("error", err.Error()))
	}
	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(ErrDataCorruption, "failed to compress session payload", goerr.V("error", err.Error()))
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}

// Decode reverses Encode into v. Any malformed layer yields ErrDataCorruption.
func Decode(data []byte, v any) error {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(compressed, bytes.TrimSpace(data))
	if err != nil {
		return goerr.Wrap(ErrDataCorruption, "invalid base64 payload", goerr.V("error", err.Error()))
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed[:n]))
	if err != nil {
		return goerr.Wrap(ErrDataCorruption, "invalid gzip payload", goerr.V("error", err.Error()))
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return goerr.Wrap(ErrDataCorruption, "failed to decompress payload", goerr.V("error", err.Error()))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return goerr.Wrap(ErrDataCorruption, "invalid JSON payload", goerr.V("error", err.Error()))
	}
	return nil
}
