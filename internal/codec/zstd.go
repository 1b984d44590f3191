package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdPool manages reusable zstd decoders to reduce allocation overhead.
type ZstdPool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
}

// NewZstdPool creates a pool of zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func NewZstdPool(maxMemory uint64) *ZstdPool {
	p := &ZstdPool{maxDecoderMemory: maxMemory}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// Get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *ZstdPool) Get(r io.Reader) (*zstd.Decoder, func(), error) {
	if p == nil || p.pool == nil {
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// Decode decompresses a complete zstd stream, bounded by limit (0 uses DefaultMaxSize).
func (p *ZstdPool) Decode(data []byte, limit uint64) ([]byte, error) {
	dec, release, err := p.Get(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompression, err)
	}
	defer release()
	return readBounded(dec, 0, limit, "zstd")
}

func (p *ZstdPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if p != nil && p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}

// EncodeZstd compresses data as a single zstd stream.
func EncodeZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}
