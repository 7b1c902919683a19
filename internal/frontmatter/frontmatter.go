// Package frontmatter splits content files into an optional TOML front-matter
// block and a body.
//
// A block opens with a line of three or more '+' characters (leading blank
// lines are skipped) and closes with a line holding exactly the same number of
// '+' characters:
//
//	+++
//	title = "Hello"
//	+++
//	Body starts here.
package frontmatter

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidStartMarker is returned when the opening marker line has fewer
	// than three '+' characters or contains anything else.
	ErrInvalidStartMarker = errors.New("invalid start marker")

	// ErrEOF is returned when the input ends before the block is closed.
	ErrEOF = errors.New("end of file")
)

// Document is the result of splitting a content file.
type Document struct {
	// FrontMatter is the raw text between the marker lines.
	FrontMatter string
	// HasFrontMatter is false when the file does not open with a marker.
	HasFrontMatter bool
	// Offset is the byte offset in the input where Body starts.
	Offset int
	// Body is the input from Offset on.
	Body string
}

type stateKind int

const (
	searchForBeginMarker stateKind = iota
	startedBeginMarker
	endedBeginMarker
	startedFrontMatter
	endedFrontMatter
)

// state carries the fields used by the current stateKind. endMarkerCount is
// -1 while the current line holds something other than '+'.
type state struct {
	kind             stateKind
	markerCount      int
	frontMatterStart int
	frontMatterEnd   int
	endMarkerCount   int
}

// Parse splits contents into its front matter and body. It keeps no state
// between calls and the returned strings share memory with contents.
func Parse(contents string) (Document, error) {
	st := state{kind: searchForBeginMarker}

	for idx, ch := range contents {
		newline := ch == '\n' || ch == '\r'

		switch st.kind {
		case searchForBeginMarker:
			switch {
			case ch == '+':
				st = state{kind: startedBeginMarker, markerCount: 1}
			case newline:
			default:
				return Document{Body: contents}, nil
			}

		case startedBeginMarker:
			switch {
			case ch == '+':
				st.markerCount++
			case newline:
				if st.markerCount < 3 {
					return Document{}, ErrInvalidStartMarker
				}
				st.kind = endedBeginMarker
			default:
				return Document{}, ErrInvalidStartMarker
			}

		case endedBeginMarker:
			switch {
			case newline:
			case ch == '+':
				st = state{
					kind:             startedFrontMatter,
					markerCount:      st.markerCount,
					frontMatterStart: idx,
					frontMatterEnd:   idx,
					endMarkerCount:   1,
				}
			default:
				st = state{
					kind:             startedFrontMatter,
					markerCount:      st.markerCount,
					frontMatterStart: idx,
					frontMatterEnd:   idx,
					endMarkerCount:   0,
				}
			}

		case startedFrontMatter:
			switch {
			case newline:
				if st.endMarkerCount == st.markerCount {
					st.kind = endedFrontMatter
				} else {
					st.frontMatterEnd = idx
					st.endMarkerCount = 0
				}
			case ch == '+':
				if st.endMarkerCount >= 0 {
					st.endMarkerCount++
				}
			default:
				st.frontMatterEnd = idx
				st.endMarkerCount = -1
			}

		case endedFrontMatter:
			if !newline {
				return Document{
					FrontMatter:    trimBlankLines(contents[st.frontMatterStart:st.frontMatterEnd]),
					HasFrontMatter: true,
					Offset:         idx,
					Body:           contents[idx:],
				}, nil
			}
		}
	}

	switch st.kind {
	case searchForBeginMarker:
		// Empty or blank input.
		return Document{Body: contents}, nil
	case endedFrontMatter:
		return Document{
			FrontMatter:    trimBlankLines(contents[st.frontMatterStart:st.frontMatterEnd]),
			HasFrontMatter: true,
			Offset:         len(contents),
		}, nil
	default:
		return Document{}, ErrEOF
	}
}

func trimBlankLines(s string) string {
	return strings.TrimRight(s, "\r\n")
}
