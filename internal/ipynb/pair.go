package ipynb

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/nbsync/internal/percent"
)

// StarterContents is the script written for a new pair.
const StarterContents = `# ---
# jupyter:
#   jupytext:
#     text_representation:
#       extension: .py
#       format_name: percent
#       format_version: '1.3'
#   kernelspec:
#     display_name: Python 3
#     language: python
#     name: python3
# ---

# %%
`

// Pair names the two files of a notebook pair.
type Pair struct {
	Script   string `json:"script"`
	Notebook string `json:"notebook"`
}

// PairPaths returns base.<ext>.py and base.<ext>.ipynb, rejecting a base
// that already carries one of those suffixes.
func PairPaths(base, ext string) (Pair, error) {
	for _, suffix := range []string{".py", ".ipynb", "." + ext} {
		if strings.HasSuffix(base, suffix) {
			return Pair{}, fmt.Errorf("base %q must not end with %q; it is added", base, suffix)
		}
	}
	if base == "" {
		return Pair{}, fmt.Errorf("base must not be empty")
	}
	return Pair{
		Script:   base + "." + ext + ".py",
		Notebook: base + "." + ext + ".ipynb",
	}, nil
}

// NewPair writes a starter script and the matching notebook. Existing files
// are only overwritten when force is set.
func NewPair(base, ext string, force bool) (Pair, error) {
	p, err := PairPaths(base, ext)
	if err != nil {
		return Pair{}, err
	}
	if !force {
		for _, path := range []string{p.Script, p.Notebook} {
			if _, err := os.Stat(path); err == nil {
				return Pair{}, fmt.Errorf("%s: %w", path, ErrExists)
			}
		}
	}

	if err := os.WriteFile(p.Script, []byte(StarterContents), 0o644); err != nil {
		return Pair{}, err
	}
	if err := Write(p.Notebook, percent.Parse(StarterContents)); err != nil {
		return Pair{}, err
	}
	return p, nil
}
