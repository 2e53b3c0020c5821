package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"sei/config"
	"sei/state"
)

// buildOutputPath returns destination file path for source document. "src"
// is source path relative to processed directory or archive (always
// including file name), "dst" is destination directory. Source directory
// structure is kept unless NoDirs is requested, file name keeps its
// extension and is optionally transliterated.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	return filepath.Join(determineOutputDir(src, dst, env), buildFileName(src, env))
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	dir := filepath.Dir(filepath.FromSlash(src))
	if dir == "." {
		return dst
	}
	parts := strings.Split(dir, string(filepath.Separator))
	for i, p := range parts {
		parts[i] = cleanPathSegment(p, env)
	}
	return filepath.Join(append([]string{dst}, parts...)...)
}

func buildFileName(src string, env *state.LocalEnv) string {
	base := filepath.Base(filepath.FromSlash(src))
	ext := filepath.Ext(base)
	return cleanPathSegment(strings.TrimSuffix(base, ext), env) + ext
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
