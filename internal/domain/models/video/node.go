package video

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
)

// NodeKind is the explicit discriminator tag carried by every tree node.
// All tree-walking code switches on this tag.
type NodeKind string

const (
	KindSegment NodeKind = "Segment"
	KindChapter NodeKind = "Chapter"
	KindVideo   NodeKind = "Video"
)

// Node is one node of the content tree. The tree is an immutable value
// produced once by an indexer; derived attributes (Span, ID) are computed
// on every access rather than cached, so they can never go stale.
type Node interface {
	// Kind returns the discriminator tag for this node.
	Kind() NodeKind
	// Span returns the node's time range. For containers it is derived
	// from the children (min start, max end); for leaves it is stored.
	Span() TimeSpan
	// ID returns the stable identity derived from kind + span,
	// e.g. "Segment_0130_0245".
	ID() string
	// NodeTitle returns the display title.
	NodeTitle() string
	// Synopsis returns the one-line text a parent uses when listing this
	// node as a child: the summary for containers, the description for
	// leaves.
	Synopsis() string
}

// nodeID derives the identity string from kind + span digits.
func nodeID(kind NodeKind, span TimeSpan) string {
	return fmt.Sprintf("%s_%s_%s", kind, digits(span.Start), digits(span.End))
}

// sentinelSpan is the degenerate-but-valid span a container reports when it
// has no children.
func sentinelSpan() TimeSpan {
	return TimeSpan{Start: "00:00", End: "00:01"}
}

// spanOver aggregates min start / max end across child spans. Child order
// is not assumed; lexicographic comparison on zero-padded MM:SS is
// chronological comparison.
func spanOver(spans []TimeSpan) TimeSpan {
	if len(spans) == 0 {
		return sentinelSpan()
	}
	agg := spans[0]
	for _, s := range spans[1:] {
		if s.Start < agg.Start {
			agg.Start = s.Start
		}
		if s.End > agg.End {
			agg.End = s.End
		}
	}
	return agg
}

// Segment is a leaf node: one indivisible unit of video content (a scene,
// an exchange, a slide). Only leaves store a time span.
type Segment struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TimeSpan    TimeSpan `json:"time_span"`
}

func (s *Segment) Kind() NodeKind    { return KindSegment }
func (s *Segment) Span() TimeSpan    { return s.TimeSpan }
func (s *Segment) ID() string        { return nodeID(KindSegment, s.TimeSpan) }
func (s *Segment) NodeTitle() string { return s.Title }
func (s *Segment) Synopsis() string  { return s.Description }

// Validate checks the segment's required fields and its span.
func (s *Segment) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Description, validation.Required),
	); err != nil {
		return domain.NewValidationError("invalid segment: %v", err)
	}
	return s.TimeSpan.Validate()
}

// MarshalJSON emits the discriminator tag and the derived id alongside the
// stored fields.
func (s *Segment) MarshalJSON() ([]byte, error) {
	type alias Segment
	return json.Marshal(struct {
		NodeType NodeKind `json:"node_type"`
		ID       string   `json:"id"`
		*alias
	}{
		NodeType: KindSegment,
		ID:       s.ID(),
		alias:    (*alias)(s),
	})
}

// Chapter is a container node: a major division of the video. Its time
// span is never stored; it is derived from the children on demand.
type Chapter struct {
	Title    string     `json:"title"`
	Summary  string     `json:"summary"`
	Children []*Segment `json:"children"`
}

func (c *Chapter) Kind() NodeKind { return KindChapter }

// Span derives min start / max end over the children, tolerating arbitrary
// child order. With no children it is the 00:00-00:01 sentinel.
func (c *Chapter) Span() TimeSpan {
	spans := make([]TimeSpan, len(c.Children))
	for i, child := range c.Children {
		spans[i] = child.TimeSpan
	}
	return spanOver(spans)
}

func (c *Chapter) ID() string        { return nodeID(KindChapter, c.Span()) }
func (c *Chapter) NodeTitle() string { return c.Title }
func (c *Chapter) Synopsis() string  { return c.Summary }

// Validate checks the chapter's required fields and every child.
func (c *Chapter) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
	); err != nil {
		return domain.NewValidationError("invalid chapter: %v", err)
	}
	for i, child := range c.Children {
		if err := child.Validate(); err != nil {
			return domain.NewValidationError("chapter %q child %d: %v", c.Title, i, err)
		}
	}
	return nil
}

// MarshalJSON emits the discriminator tag plus the derived id and span.
func (c *Chapter) MarshalJSON() ([]byte, error) {
	type alias Chapter
	return json.Marshal(struct {
		NodeType NodeKind `json:"node_type"`
		ID       string   `json:"id"`
		TimeSpan TimeSpan `json:"time_span"`
		*alias
	}{
		NodeType: KindChapter,
		ID:       c.ID(),
		TimeSpan: c.Span(),
		alias:    (*alias)(c),
	})
}

// AnalysisResult is the root of the content tree. Its children are
// polymorphic: a video may mix top-level chapters and loose top-level
// segments, since not every video needs an intermediate grouping level.
type AnalysisResult struct {
	VideoTitle string `json:"video_title"`
	Overview   string `json:"overview"`
	Children   []Node `json:"children"`
}

func (r *AnalysisResult) Kind() NodeKind { return KindVideo }

// Span derives min start / max end over the children, or the sentinel span
// when the tree is empty.
func (r *AnalysisResult) Span() TimeSpan {
	spans := make([]TimeSpan, len(r.Children))
	for i, child := range r.Children {
		spans[i] = child.Span()
	}
	return spanOver(spans)
}

func (r *AnalysisResult) ID() string        { return nodeID(KindVideo, r.Span()) }
func (r *AnalysisResult) NodeTitle() string { return r.VideoTitle }
func (r *AnalysisResult) Synopsis() string  { return r.Overview }

// Validate checks required fields and recursively validates every child.
// It does not enforce non-empty children; that is the indexer's contract.
func (r *AnalysisResult) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.VideoTitle, validation.Required),
	); err != nil {
		return domain.NewValidationError("invalid analysis result: %v", err)
	}
	for i, child := range r.Children {
		var err error
		switch n := child.(type) {
		case *Segment:
			err = n.Validate()
		case *Chapter:
			err = n.Validate()
		default:
			return &domain.TypeMismatchError{Kind: string(child.Kind())}
		}
		if err != nil {
			return domain.NewValidationError("child %d: %v", i, err)
		}
	}
	return nil
}

// MarshalJSON emits the discriminator tag plus the derived id and span.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	type alias AnalysisResult
	return json.Marshal(struct {
		NodeType NodeKind `json:"node_type"`
		ID       string   `json:"id"`
		TimeSpan TimeSpan `json:"time_span"`
		*alias
	}{
		NodeType: KindVideo,
		ID:       r.ID(),
		TimeSpan: r.Span(),
		alias:    (*alias)(r),
	})
}

// UnmarshalJSON decodes the polymorphic children list by switching on each
// child's node_type tag. An unknown tag is a validation failure, not a
// silent fallback.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		VideoTitle string            `json:"video_title"`
		Overview   string            `json:"overview"`
		Children   []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	children := make([]Node, 0, len(raw.Children))
	for i, rawChild := range raw.Children {
		var probe struct {
			NodeType NodeKind `json:"node_type"`
		}
		if err := json.Unmarshal(rawChild, &probe); err != nil {
			return domain.NewValidationError("child %d: %v", i, err)
		}
		switch probe.NodeType {
		case KindSegment:
			var seg Segment
			if err := json.Unmarshal(rawChild, &seg); err != nil {
				return domain.NewValidationError("child %d: %v", i, err)
			}
			children = append(children, &seg)
		case KindChapter:
			var ch Chapter
			if err := json.Unmarshal(rawChild, &ch); err != nil {
				return domain.NewValidationError("child %d: %v", i, err)
			}
			children = append(children, &ch)
		default:
			return domain.NewValidationError("child %d: unknown node_type %q", i, probe.NodeType)
		}
	}

	r.VideoTitle = raw.VideoTitle
	r.Overview = raw.Overview
	r.Children = children
	return nil
}
