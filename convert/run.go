package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"

	"sei/archive"
	"sei/state"
)

// Run is "convert" command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs = cmd.Bool("nodirs") || env.Cfg.Document.NoDirs
	env.Overwrite = cmd.Bool("overwrite") || env.Cfg.Document.Overwrite
	if cmd.Bool("transliterate") {
		env.Cfg.Document.FileNameTransliterate = true
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.String("session", env.Session))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return Process(ctx, src, dst, log)
}

// Process rewrites documents found at src: a single document, a directory
// tree or a zip archive (optionally followed by path inside it). Results go
// to dst directory.
func Process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		hdr, err := readHead(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		exts := &state.EnvFromContext(ctx).Cfg.Document.Extensions
		if isArchive(head, hdr, exts) {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) == 0 && detectKind(head, hdr, exts) != DocKindUnknown {
			if err := processFile(ctx, head, filepath.Base(head), dst, log); err != nil {
				return fmt.Errorf("unable to process file: %w", err)
			}
			break
		}
		return fmt.Errorf("input was not recognized as supported document (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// ProcessPath rewrites single document or archive located somewhere under
// root directory, keeping its relative location in dst. Files which are
// neither are ignored.
func ProcessPath(ctx context.Context, root, path, dst string, log *zap.Logger) error {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s is not under %s", path, root)
	}

	hdr, err := readHead(path)
	if err != nil {
		return err
	}
	exts := &state.EnvFromContext(ctx).Cfg.Document.Extensions
	switch {
	case isArchive(path, hdr, exts):
		return processArchive(ctx, path, "", filepath.Dir(rel), dst, log)
	case detectKind(path, hdr, exts) != DocKindUnknown:
		return processFile(ctx, path, rel, dst, log)
	}
	log.Debug("Skipping file, not recognized as document or archive", zap.String("file", path))
	return nil
}

// errorList collects failures of concurrently processed documents.
type errorList struct {
	mu  sync.Mutex
	err error
}

func (l *errorList) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = multierr.Append(l.err, err)
}

// processDir finds documents and archives under dir and processes them in
// natural name order with bounded parallelism. Failures of individual
// documents do not stop processing, they are reported together.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	exts := &env.Cfg.Document.Extensions

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() && path != dir && path == dst {
			// results of previous runs
			return filepath.SkipDir
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(files))

	var (
		failed errorList
		count  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(env.Cfg.Document.Concurrency())
	for _, path := range files {
		hdr, err := readHead(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		switch {
		case isArchive(path, hdr, exts):
			count++
			g.Go(func() error {
				if err := processArchive(gctx, path, "", filepath.Dir(rel), dst, log); err != nil {
					failed.add(fmt.Errorf("%s: %w", path, err))
				}
				return gctx.Err()
			})
		case detectKind(path, hdr, exts) != DocKindUnknown:
			count++
			g.Go(func() error {
				if err := processFile(gctx, path, rel, dst, log); err != nil {
					failed.add(fmt.Errorf("%s: %w", path, err))
				}
				return gctx.Err()
			})
		default:
			log.Debug("Skipping file, not recognized as document or archive", zap.String("file", path))
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	if n := len(multierr.Errors(failed.err)); n > 0 {
		return fmt.Errorf("%d of %d documents failed: %w", n, count, failed.err)
	}
	return nil
}

// processArchive processes documents inside archive under "pathIn", "pathOut"
// is prepended to their names when building destination.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	exts := &env.Cfg.Document.Extensions

	var (
		failed error
		count  int
	)
	err := archive.Walk(path, filepath.ToSlash(pathIn), func(arc string, f *fixzip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := readEntry(f)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		if detectKind(f.Name, data[:min(len(data), headSize)], exts) == DocKindUnknown {
			log.Debug("Skipping file, not recognized as document", zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}
		count++

		name := f.Name
		if cp := env.CodePage; cp != nil && f.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(name); err == nil {
				name = n
			} else {
				log.Warn("Unable to convert archive name from specified encoding", zap.String("path", name), zap.Error(err))
			}
		}
		if err := processDocument(ctx, data, filepath.Join(pathOut, filepath.FromSlash(name)), dst, log); err != nil {
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", f.Name, err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return failed
}

func processFile(ctx context.Context, path, src, dst string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("unable to read document: %w", err)
	}
	return processDocument(ctx, data, src, dst, log)
}

// processDocument rewrites single document. "src" is the source path
// relative to processed directory or archive, when single file was requested
// it is just its base name. "dst" is the destination directory. Destination
// already holding identical content is left alone, so processing document in
// place never touches unchanged files.
func processDocument(ctx context.Context, data []byte, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	outputName := buildOutputPath(src, dst, env)
	kind := detectKind(src, data[:min(len(data), headSize)], &env.Cfg.Document.Extensions)

	log.Debug("Rewriting starting", zap.String("from", src), zap.Stringer("kind", kind))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Rewriting ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("rewriting panic: %v", r)
		}
	}(time.Now())

	excluded, editable := env.Filter()
	r := &rewriter{rw: env.Rewriter, excludedTags: excluded, editableAttr: editable, log: log}
	out, stats, err := r.rewrite(kind, data)
	if err != nil {
		return fmt.Errorf("unable to rewrite %s: %w", src, err)
	}

	existing, err := os.ReadFile(outputName)
	switch {
	case err == nil:
		if bytes.Equal(existing, out) {
			log.Debug("Destination is up to date", zap.String("file", outputName))
			return nil
		}
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		if !sameFile(filepath.Join(dst, src), outputName) {
			log.Warn("Overwriting existing file", zap.String("file", outputName))
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
			return fmt.Errorf("unable to create output directory: %w", err)
		}
	default:
		return err
	}

	if err := os.WriteFile(outputName, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	log.Info("Document rewritten", zap.String("from", src), zap.String("to", outputName),
		zap.Int("changed", stats.Changed), zap.Int("failed", stats.Failed))

	// store conversion results for debugging
	if stats.Changed > 0 {
		env.Rpt.StoreData(filepath.ToSlash(filepath.Join("source", src)), data)
		env.Rpt.StoreData(filepath.ToSlash(filepath.Join("result", src)), out)
	}
	return nil
}

func sameFile(a, b string) bool {
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
