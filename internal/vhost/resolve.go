/*
 * Copyright (c) 2001-2013 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

package vhost

import (
	"os"
	"path/filepath"
	"strings"
)

// Outcome is the result of resolving a request against the document tree.
type Outcome int

const (
	// OutcomeNotFound covers both a hierarchy-check failure and a stat
	// failure (§4.6: "the hierarchy containment check ... also catches
	// symlink escapes and non-existent parents").
	OutcomeNotFound Outcome = iota
	// OutcomeRedirect means the path names a directory without a
	// trailing slash; RedirectPath is the original URL path + "/".
	OutcomeRedirect
	// OutcomeFile means Filename names a regular, stattable file.
	OutcomeFile
)

// Resolved is what Resolve returns.
type Resolved struct {
	Outcome      Outcome
	Filename     string      // valid when Outcome == OutcomeFile
	Info         os.FileInfo // valid when Outcome == OutcomeFile
	RedirectPath string      // valid when Outcome == OutcomeRedirect

	// LoggableError carries a non-ENOENT stat error, if one occurred, so the
	// caller can log at info severity per §7's taxonomy, without logging
	// the overwhelmingly common "does not exist" case.
	LoggableError error
}

// Resolve implements §4.5/§4.6: build document_root+urlPath under
// documentRoot/host, require canonical containment, stat the result, and
// follow the directory/default-page rule.
//
// urlPath is the already-decoded filesystem path fragment (the caller has
// applied URLDecode to the raw URL path); originalURLPath is the raw,
// still-encoded URL path, needed verbatim for the redirect Location (§4.6:
// "the directory-index redirect must use the original URL path").
func Resolve(documentRoot, host, urlPath, originalURLPath, defaultPage string) Resolved {
	vhostRoot := filepath.Join(documentRoot, host)
	filename := filepath.Join(vhostRoot, urlPath)

	if !isPathInHierarchy(vhostRoot, filename) {
		return Resolved{Outcome: OutcomeNotFound}
	}

	for {
		info, err := os.Stat(filename)
		if err != nil {
			var loggable error
			if !os.IsNotExist(err) {
				loggable = err
			}
			return Resolved{Outcome: OutcomeNotFound, LoggableError: loggable}
		}
		if info.IsDir() {
			if strings.HasSuffix(originalURLPath, "/") {
				filename = filepath.Join(filename, defaultPage)
				continue
			}
			return Resolved{Outcome: OutcomeRedirect, RedirectPath: originalURLPath + "/"}
		}
		return Resolved{Outcome: OutcomeFile, Filename: filename, Info: info}
	}
}

// isPathInHierarchy reports whether the canonicalized filename lies under
// the canonicalized hierarchy root. Canonicalization resolves symlinks and
// collapses "..", so it is the sole defense against path traversal (§4.6).
func isPathInHierarchy(hierarchy, path string) bool {
	resolvedHierarchy, err := filepath.EvalSymlinks(hierarchy)
	if err != nil {
		return false
	}
	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		// EvalSymlinks fails for a path whose final component doesn't
		// exist yet; fall back to resolving its parent directory so a
		// not-yet-stattable file within a legitimately contained
		// directory isn't rejected outright.
		resolvedParent, perr := filepath.EvalSymlinks(filepath.Dir(path))
		if perr != nil {
			return false
		}
		resolvedPath = filepath.Join(resolvedParent, filepath.Base(path))
	}
	rel, err := filepath.Rel(resolvedHierarchy, resolvedPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
