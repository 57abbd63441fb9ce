// Package agent compiles an indexed content tree into a hierarchy of
// agent specifications. Every tree node becomes one agent: leaves answer
// from their own clip, containers answer by delegating to their children,
// which are exposed to them as callable tools.
package agent

import (
	"fmt"
	"strings"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
)

// AgentSpec is the compiled form of one tree node. The runtime executes a
// spec tree; the compiler only builds it.
type AgentSpec struct {
	// Name is the node's derived ID, unique within one tree.
	Name string

	// Description is the one-line summary a parent sees when this spec is
	// exposed to it as a tool.
	Description string

	// Instruction is the system prompt scoping the agent to its node.
	Instruction string

	// Model is the generation model all agents in the tree share.
	Model string

	// OutputKey names the slot the agent's final text is stored under.
	OutputKey string

	// Tools holds the compiled children, one per child, in child order.
	// Empty on leaves.
	Tools []*AgentSpec

	// BeforeModel runs before every model call. Set on leaves to attach
	// the clip for the leaf's span; nil on containers.
	BeforeModel BeforeModelHook
}

// Compiler turns content-tree nodes into agent specs.
type Compiler struct {
	model string
}

// NewCompiler creates a compiler that binds every produced spec to the
// given model.
func NewCompiler(model string) *Compiler {
	return &Compiler{model: model}
}

// Compile builds the agent spec for a node, compiling container children
// bottom-up. An unknown node kind fails with a type mismatch; there is no
// fallback shape to compile it into.
func (c *Compiler) Compile(node video.Node) (*AgentSpec, error) {
	switch n := node.(type) {
	case *video.Segment:
		return c.compileSegment(n), nil
	case *video.Chapter:
		children := make([]video.Node, len(n.Children))
		for i, child := range n.Children {
			children[i] = child
		}
		return c.compileContainer(n, "chapter", n.Summary, children)
	case *video.AnalysisResult:
		return c.compileContainer(n, "video", n.Overview, n.Children)
	default:
		return nil, &domain.TypeMismatchError{Kind: string(node.Kind())}
	}
}

func (c *Compiler) compileSegment(seg *video.Segment) *AgentSpec {
	span := seg.TimeSpan
	return &AgentSpec{
		Name:        seg.ID(),
		Description: nodeDescription(seg.Title, span, "segment"),
		Instruction: segmentInstruction(seg),
		Model:       c.model,
		OutputKey:   seg.ID() + "_response",
		BeforeModel: AttachClipHook(span),
	}
}

func (c *Compiler) compileContainer(node video.Node, scope, synopsis string, children []video.Node) (*AgentSpec, error) {
	tools := make([]*AgentSpec, len(children))
	for i, child := range children {
		compiled, err := c.Compile(child)
		if err != nil {
			return nil, err
		}
		tools[i] = compiled
	}

	return &AgentSpec{
		Name:        node.ID(),
		Description: nodeDescription(node.NodeTitle(), node.Span(), scope),
		Instruction: containerInstruction(node, scope, synopsis, children),
		Model:       c.model,
		OutputKey:   node.ID() + "_response",
		Tools:       tools,
	}, nil
}

// nodeDescription is the tool-facing summary: who this agent is an expert
// on and what time range it covers.
func nodeDescription(title string, span video.TimeSpan, scope string) string {
	return fmt.Sprintf("Expert agent for %q. Time range: %s - %s. Answers questions about the visuals, audio, and events of this %s.",
		title, span.Start, span.End, scope)
}

func segmentInstruction(seg *video.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the expert agent for the video segment %q.\n\n", seg.Title)
	fmt.Fprintf(&b, "## Assigned range\n- Time: %s - %s\n\n", seg.TimeSpan.Start, seg.TimeSpan.End)
	fmt.Fprintf(&b, "## Segment content\n%s\n\n", seg.Description)
	b.WriteString(`## Conduct
1. Answer the user's question accurately, based on the segment content above.
2. Use only information contained in this segment; avoid speculation and outside knowledge.
3. If the question falls outside this segment's range, say so clearly.
4. You can describe visual elements, audio, spoken content, and the sequence of events in detail.`)
	return b.String()
}

func containerInstruction(node video.Node, scope, synopsis string, children []video.Node) string {
	span := node.Span()

	var listing strings.Builder
	for _, child := range children {
		cs := child.Span()
		fmt.Fprintf(&listing, "- [%s - %s] %s: %s\n", cs.Start, cs.End, child.NodeTitle(), child.Synopsis())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the expert agent for the %s %q.\n\n", scope, node.NodeTitle())
	fmt.Fprintf(&b, "## Assigned range\n- Time: %s - %s\n\n", span.Start, span.End)
	fmt.Fprintf(&b, "## Overview\n%s\n\n", synopsis)
	fmt.Fprintf(&b, "## Contained children\n%s\n", listing.String())
	fmt.Fprintf(&b, `## Conduct
1. Answer the user's question accurately, based on the overview and the child listing above.
2. Use only information contained in this %s; avoid speculation and outside knowledge.
3. If the question falls outside this %s's range, say so clearly.

## Tool usage
You hold an expert agent for each child as a tool.
- When detailed information is needed, always call the covering child agent.
- When the question concerns a specific time range, delegate to the child responsible for that time.
- When the question spans multiple children, call every relevant child agent in turn and synthesize their answers.
- Even for questions answerable at the overview level, confirming with a child agent improves accuracy.
- When deeper detail is needed, child agents can in turn call their own children.`, scope, scope)
	return b.String()
}
