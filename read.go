package arrayio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scigolib/arrayio/internal/utils"
)

// ErrShortBuffer is returned when the destination cannot hold the section.
var ErrShortBuffer = errors.New("destination buffer too small")

// ReadSection executes the transfer plan of layout against r: one ReadAt
// of Nelems*ElemSize bytes per chunk, stored at byte DestElem*ElemSize of
// dst. dst must hold at least TotalNelems*ElemSize bytes; parts of the
// section with no storage (unallocated chunks) are left untouched.
//
// Cancellation of ctx stops the plan between transfers.
func ReadSection(ctx context.Context, r io.ReaderAt, layout Layout, dst []byte, opts ...ReadOption) error {
	cfg := defaultReadConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return utils.WrapError("read section", err)
		}
	}

	need, err := utils.ByteSize(layout.TotalNelems(), layout.ElemSize())
	if err != nil {
		return utils.WrapError("read section", err)
	}
	if int64(len(dst)) < need {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, len(dst))
	}

	log := cfg.logger.With(
		zap.Int64("nelems", layout.TotalNelems()),
		zap.Int("elemSize", layout.ElemSize()),
	)

	if cfg.workers == 1 {
		n, err := readSequential(ctx, r, layout, dst, log)
		if err != nil {
			log.Error("section read failed", zap.Int("transfers", n), zap.Error(err))
			return err
		}
		log.Debug("section read", zap.Int("transfers", n))
		return nil
	}

	plan, err := Plan(layout)
	if err != nil {
		return utils.WrapError("read section", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for _, c := range plan {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return readChunk(r, c, layout.ElemSize(), dst)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("section read failed", zap.Int("transfers", len(plan)), zap.Error(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug("section read", zap.Int("transfers", len(plan)), zap.Int("workers", cfg.workers))
	return nil
}

// Plan drains layout into a slice of chunks.
func Plan(layout Layout) ([]Chunk, error) {
	var plan []Chunk
	for c := range Chunks(layout) {
		plan = append(plan, c)
	}
	if err := layout.Err(); err != nil {
		return nil, err
	}
	return plan, nil
}

func readSequential(ctx context.Context, r io.ReaderAt, layout Layout, dst []byte, log *zap.Logger) (int, error) {
	n := 0
	for layout.Next() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		c := layout.Chunk()
		if err := readChunk(r, c, layout.ElemSize(), dst); err != nil {
			return n, err
		}
		if ce := log.Check(zap.DebugLevel, "transfer"); ce != nil {
			ce.Write(zap.Int64("srcPos", c.SrcPos), zap.Int("nelems", c.Nelems), zap.Int64("destElem", c.DestElem))
		}
		n++
	}
	if err := layout.Err(); err != nil {
		return n, utils.WrapError("read section", err)
	}
	return n, nil
}

func readChunk(r io.ReaderAt, c Chunk, elemSize int, dst []byte) error {
	off := c.DestElem * int64(elemSize)
	size := int64(c.Nelems) * int64(elemSize)
	if off < 0 || off+size > int64(len(dst)) {
		return fmt.Errorf("%w: transfer to element %d of %d elements exceeds buffer of %d bytes",
			ErrShortBuffer, c.DestElem, c.Nelems, len(dst))
	}
	n, err := r.ReadAt(dst[off:off+size], c.SrcPos)
	if err != nil && (!errors.Is(err, io.EOF) || int64(n) != size) {
		return utils.WrapError(fmt.Sprintf("reading %d bytes at 0x%x", size, c.SrcPos), err)
	}
	return nil
}
