// Completion: 80% - Driver wires the output-chunk core end to end for a
// minimal static executable; dynamic linking and input-object parsing
// are left to a real frontend (out of scope for this core).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/xyproto/env/v2"

	"github.com/xyproto/coreld/internal/chunk"
	"github.com/xyproto/coreld/internal/outfile"
	"github.com/xyproto/coreld/internal/target"
)

const versionString = "coreld 0.1.0"

func main() {
	var (
		archFlag    = flag.String("arch", env.StrOr("CORELD_ARCH", "x86_64"), "target architecture (x86_64, arm64, riscv64)")
		outputFlag  = flag.String("o", env.StrOr("CORELD_OUTPUT", "a.out"), "output filename")
		entryFlag   = flag.String("entry", "_start", "entry point symbol name")
		buildIDFlag = flag.String("build-id", "hash", "build-id mode: none, hash, uuid")
		compressFlag = flag.String("compress-debug", "none", "debug section compression: none, zlib, zstd")
		verboseFlag = flag.Bool("v", env.Bool("CORELD_VERBOSE"), "verbose logging")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println(versionString)
		return
	}

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *archFlag, *outputFlag, *entryFlag, *buildIDFlag, *compressFlag); err != nil {
		logger.Error("link failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, archStr, output, entry, buildIDMode, compressMode string) error {
	machine, err := target.ParseMachine(archStr)
	if err != nil {
		return err
	}
	profile, err := target.ForMachine(machine)
	if err != nil {
		return err
	}

	opts := chunk.Options{
		Output:        chunk.OutputExec,
		Entry:         entry,
		BuildIDMode:   parseBuildIDMode(buildIDMode),
		CompressDebug: parseCompressKind(compressMode),
		SpareDynTags:  0,
		StackFlags:    chunk.PF_R | chunk.PF_W,
	}

	ctx := chunk.NewContext(profile, opts, logger)

	shstrtab := chunk.NewShstrtabSection()
	shdrTable := chunk.NewShdrSection()
	phdrTable := chunk.NewPhdrSection(&chunk.PhdrBuilder{
		PageSize: 0x1000,
	})
	ehdr := chunk.NewEhdrSection(phdrTable, shdrTable, shstrtab)
	ehdr.EntrySym = entry

	var buildID *chunk.BuildIdSection
	if opts.BuildIDMode != chunk.BuildIDNone {
		buildID = chunk.NewBuildIdSection()
		buildID.Mode = opts.BuildIDMode
		buildID.HashSize = 20
	}

	// PhdrBuilder.Build stops grouping PT_LOAD as soon as it meets a
	// non-SHF_ALLOC chunk, so allocated chunks must sort before
	// .shstrtab in the list it scans.
	var named []chunk.Chunk
	if buildID != nil {
		named = append(named, buildID)
	}
	named = append(named, shstrtab)
	for i, c := range named {
		c.SetShndx(i + 1)
	}
	shstrtab.Chunks = named
	shdrTable.Chunks = named

	phdrTable.Chunks = named
	phdrTable.Builder.Phdr = phdrTable

	allChunks := append([]chunk.Chunk{ehdr, phdrTable}, named...)
	allChunks = append(allChunks, shdrTable)

	for _, c := range allChunks {
		if cons, ok := c.(chunk.Constructor); ok {
			if err := cons.Construct(ctx); err != nil {
				return fmt.Errorf("construct %s: %w", c.ChunkName(), err)
			}
		}
	}
	for _, c := range allChunks {
		if err := c.UpdateShdr(ctx); err != nil {
			return fmt.Errorf("update_shdr %s: %w", c.ChunkName(), err)
		}
	}

	layoutChunks(allChunks)

	total := uint64(0)
	for _, c := range allChunks {
		h := c.Header()
		if end := h.Offset + h.Size; end > total {
			total = end
		}
	}

	mapped, err := outfile.Create(output, int64(total), 0o755)
	if err != nil {
		return err
	}
	defer mapped.Close()
	buf := mapped.Bytes()

	err = ctx.Par.ForEach(len(allChunks), func(i int) error {
		return allChunks[i].CopyBuf(ctx, buf)
	})
	if err != nil {
		return fmt.Errorf("copy_buf: %w", err)
	}

	if buildID != nil && buildID.Mode == chunk.BuildIDHash {
		if err := buildID.WriteBuildID(ctx, buf); err != nil {
			return fmt.Errorf("build-id: %w", err)
		}
	}

	return mapped.Close()
}

// layoutChunks assigns each chunk a contiguous, alignment-respecting
// file offset. Real address/offset assignment belongs to the layout
// pass this core treats as an external collaborator; this driver's
// packer is the simplest policy that satisfies every chunk's
// Addralign, since there is no section layout optimizer to wire here.
func layoutChunks(chunks []chunk.Chunk) {
	var cursor uint64
	for _, c := range chunks {
		h := c.Header()
		align := h.Addralign
		if align == 0 {
			align = 1
		}
		cursor = (cursor + align - 1) &^ (align - 1)
		h.Offset = cursor
		h.Addr = cursor
		cursor += h.Size
	}
}

func parseBuildIDMode(s string) chunk.BuildIDMode {
	switch s {
	case "hash":
		return chunk.BuildIDHash
	case "uuid":
		return chunk.BuildIDUUID
	default:
		return chunk.BuildIDNone
	}
}

func parseCompressKind(s string) chunk.CompressKind {
	switch s {
	case "zlib":
		return chunk.CompressZlib
	case "zstd":
		return chunk.CompressZstd
	default:
		return chunk.CompressNone
	}
}
