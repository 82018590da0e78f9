package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scigolib/arrayio"
)

type options struct {
	shape      string
	chunk      string
	section    string
	elemSize   int
	startPos   int64
	recordSize int64
	file       string
	btree      string
	offsetSize uint8
	read       bool
	workers    int
	limit      int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sectionplan",
		Short: "Print the transfer plan for reading an array section",
		Long: `Print the byte-range transfers needed to read a section of a variable.

The storage model is chosen from the flags:
  --record-size   netCDF3 record variable (segmented layout)
  --chunk         grid-chunked variable; chunks come from the HDF5 v1 chunk
                  B-tree at --btree in --file, or from an implicit index
                  (all chunks stored in tile order from --start)
  otherwise       contiguous variable starting at --start

Examples:
  # Contiguous 2D float32 variable
  sectionplan --shape 60,120 --elem-size 4 --section 20:39,40:79

  # Chunked variable with an implicit chunk index
  sectionplan --shape 60,120 --chunk 15,30 --elem-size 4 --section 20:39,40:79

  # Read the section from an HDF5 file using its chunk B-tree
  sectionplan --file data.h5 --btree 0x2a0 --shape 100,100 --chunk 10,10 \
      --elem-size 8 --section 0:49,0:99 --read --workers 4`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.shape, "shape", "", "Variable shape, comma separated (required)")
	f.StringVar(&opts.chunk, "chunk", "", "Storage chunk shape, comma separated")
	f.StringVar(&opts.section, "section", "", "Section to read, e.g. 20:39,40:79 (default: whole variable)")
	f.IntVar(&opts.elemSize, "elem-size", 1, "Element size in bytes")
	f.Int64Var(&opts.startPos, "start", 0, "File position of the variable data (or first record)")
	f.Int64Var(&opts.recordSize, "record-size", 0, "Record stride in bytes for record variables")
	f.StringVar(&opts.file, "file", "", "File to read the chunk index or data from")
	f.StringVar(&opts.btree, "btree", "", "Address of the HDF5 v1 chunk B-tree root")
	f.Uint8Var(&opts.offsetSize, "offset-size", 8, "HDF5 address width in bytes")
	f.BoolVar(&opts.read, "read", false, "Execute the plan against --file")
	f.IntVar(&opts.workers, "workers", 1, "Concurrent transfers when reading")
	f.IntVar(&opts.limit, "limit", 50, "Maximum transfers to print (0 = all)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	_ = cmd.MarkFlagRequired("shape")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func run(ctx context.Context, w io.Writer, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	varShape, err := parseInts(opts.shape)
	if err != nil {
		return fmt.Errorf("invalid --shape: %w", err)
	}
	want, err := arrayio.ShapeSpace(varShape)
	if err != nil {
		return err
	}
	if opts.section != "" {
		if want, err = arrayio.ParseIndexSpace(opts.section); err != nil {
			return err
		}
	}

	var file *os.File
	if opts.file != "" {
		//nolint:gosec // G304: user-provided filename is intentional
		if file, err = os.Open(opts.file); err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer func() { _ = file.Close() }()
	}

	logger.Debug("planning section",
		zap.Ints("shape", varShape), zap.Stringer("section", want), zap.Int("elemSize", opts.elemSize))

	newLayout := func() (arrayio.Layout, error) {
		return buildLayout(ctx, file, opts, varShape, want)
	}

	layout, err := newLayout()
	if err != nil {
		return err
	}
	plan, err := arrayio.Plan(layout)
	if err != nil {
		return err
	}
	printPlan(w, plan, opts.elemSize, opts.limit)

	total := want.TotalElements() * int64(opts.elemSize)
	fmt.Fprintf(w, "\n%d transfers, %d elements, %s\n",
		len(plan), want.TotalElements(), humanize.IBytes(uint64(max(total, 0))))

	if !opts.read {
		return nil
	}
	if file == nil {
		return errors.New("--read requires --file")
	}

	// Plans are single-pass: build a fresh one for execution.
	layout, err = newLayout()
	if err != nil {
		return err
	}
	dst := make([]byte, total)
	err = arrayio.ReadSection(ctx, file, layout, dst,
		arrayio.WithWorkers(opts.workers),
		arrayio.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "read %s\n", humanize.IBytes(uint64(len(dst))))
	return nil
}

func buildLayout(ctx context.Context, file *os.File, opts *options, varShape []int, want arrayio.IndexSpace) (arrayio.Layout, error) {
	switch {
	case opts.recordSize > 0:
		return arrayio.NewLayoutRegularSegmented(opts.startPos, opts.elemSize, opts.recordSize, varShape, want)

	case opts.chunk != "":
		chunkShape, err := parseInts(opts.chunk)
		if err != nil {
			return nil, fmt.Errorf("invalid --chunk: %w", err)
		}
		tiling, err := arrayio.NewTiling(varShape, chunkShape)
		if err != nil {
			return nil, err
		}

		var chunks arrayio.DataChunkIterator
		if opts.btree != "" {
			if file == nil {
				return nil, errors.New("--btree requires --file")
			}
			addr, err := strconv.ParseUint(opts.btree, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --btree: %w", err)
			}
			index, err := arrayio.OpenChunkIndex(file, addr, opts.offsetSize, tiling)
			if err != nil {
				return nil, err
			}
			if chunks, err = index.Chunks(ctx, want); err != nil {
				return nil, err
			}
		} else {
			implicit, err := arrayio.NewImplicitChunks(tiling, want, opts.startPos, opts.elemSize)
			if err != nil {
				return nil, err
			}
			chunks = implicit
		}
		return arrayio.NewLayoutTiled(chunks, chunkShape, opts.elemSize, want)

	default:
		return arrayio.NewLayoutRegular(opts.startPos, opts.elemSize, varShape, want)
	}
}

func printPlan(w io.Writer, plan []arrayio.Chunk, elemSize, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "File offset", "Elements", "Bytes", "Dest element"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)

	for i, c := range plan {
		if limit > 0 && i >= limit {
			table.Append([]string{"...", "", "", "", ""})
			break
		}
		table.Append([]string{
			strconv.Itoa(i),
			fmt.Sprintf("0x%x", c.SrcPos),
			strconv.Itoa(c.Nelems),
			strconv.Itoa(c.Nelems * elemSize),
			strconv.FormatInt(c.DestElem, 10),
		})
	}
	table.Render()
}

func parseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
