package revdom

import "fmt"

// ControllerState is the per-session lifecycle state of §4.5.
type ControllerState int

const (
	StateUninitialized ControllerState = iota
	StateLive
	StateClosed
)

func (s ControllerState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateLive:
		return "Live"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Mount, Render and Reset are the three payload shapes the Render
// Controller's operations produce (§4.5, §6).
type Mount struct {
	HTML    string
	Version uint64
}

type Render struct {
	HTML    string
	Patches []Patch
	Version uint64

	// Fresh marks a Render that carries a full baseline rather than an
	// incremental patch set: Patches is always empty when Fresh is true.
	// This happens when RenderWithDiff has no prior baseline to diff
	// against, whether because a DiffFailure just reset it (§7: "the
	// controller resets the session and emits fresh HTML") or, in
	// principle, any other time the baseline is missing. The caller must
	// send this the same way it sends a Reset - as an html_update, not a
	// patch - or the client silently desyncs from a baseline it never saw.
	Fresh bool
}

type Reset struct {
	HTML    string
	Version uint64
}

// Option configures a Controller at construction time. Grounded on the
// teacher's functional-options Application config (internal/app).
type Option func(*controllerConfig)

type controllerConfig struct {
	logger Logger
}

// WithLogger overrides the Controller's Logger (defaults to DefaultLogger).
func WithLogger(l Logger) Option {
	return func(c *controllerConfig) { c.logger = l }
}

// Controller owns one session's committed baseline tree and drives the
// §4.5 state machine. The core itself is single-threaded per session
// (§5): a Controller is not safe for concurrent calls from multiple
// goroutines and callers must serialize events for a session, typically
// via a per-session queue upstream.
type Controller struct {
	sessionID    string
	templatePath string
	cache        *TemplateCache
	eval         *Evaluator
	logger       Logger

	state    ControllerState
	baseline *Node
	version  uint64
}

// NewController builds a Controller bound to one session. cache supplies
// resolved template source; eval evaluates it against render state.
func NewController(sessionID string, cache *TemplateCache, eval *Evaluator, opts ...Option) *Controller {
	cfg := controllerConfig{logger: DefaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		sessionID: sessionID,
		cache:     cache,
		eval:      eval,
		logger:    cfg.logger,
		state:     StateUninitialized,
	}
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() ControllerState { return c.state }

// Version reports the last version committed for this session.
func (c *Controller) Version() uint64 { return c.version }

// Mount implements §4.5 mount(state): resolves templatePath, evaluates it
// against state, parses and commits the result as the baseline, and sets
// version to 1. No patches are ever produced by Mount.
func (c *Controller) Mount(templatePath string, state map[string]any) (Mount, error) {
	if c.state == StateClosed {
		return Mount{}, newErr(KindEvaluationError, fmt.Sprintf("session %q is closed", c.sessionID), nil)
	}

	tree, err := c.renderTree(templatePath, state)
	if err != nil {
		return Mount{}, err
	}

	c.templatePath = templatePath
	c.baseline = tree
	c.version = 1
	c.state = StateLive
	return Mount{HTML: SerializeChildren(tree), Version: c.version}, nil
}

// RenderWithDiff implements §4.5 render_with_diff(state). It returns an
// error unless the controller is Live (mounted and not closed). When a
// Live controller has no baseline, or a diff against the prior baseline
// fails (DiffFailure), this call behaves like Mount:
// it commits a fresh baseline and returns a Fresh Render carrying no
// patches, but - unlike Mount - the version continues to advance
// monotonically rather than resetting to 1, since §8 forbids two outbound
// messages for a session ever sharing a version.
func (c *Controller) RenderWithDiff(state map[string]any) (Render, error) {
	if c.state != StateLive {
		return Render{}, newErr(KindEvaluationError, fmt.Sprintf("session %q is not live", c.sessionID), nil)
	}

	tree, err := c.renderTree(c.templatePath, state)
	if err != nil {
		return Render{}, err
	}

	if c.baseline == nil {
		return c.commitFresh(tree), nil
	}

	patches, diffErr := c.diffSafely(c.baseline, tree)
	if diffErr != nil {
		// DiffFailure (§7): the controller resets the session and emits
		// fresh HTML for this very event, rather than surfacing the error
		// and leaving the caller's next render to quietly rebuild the
		// baseline with no patches and no indication that happened.
		c.logger.Printf("session %s: diff failure, resetting to fresh baseline: %v", c.sessionID, diffErr)
		return c.commitFresh(tree), nil
	}

	c.baseline = tree
	c.version++
	return Render{HTML: SerializeChildren(tree), Patches: patches, Version: c.version}, nil
}

// commitFresh installs tree as the new baseline and builds the Fresh Render
// describing it, advancing the version.
func (c *Controller) commitFresh(tree *Node) Render {
	c.baseline = tree
	c.version++
	return Render{HTML: SerializeChildren(tree), Version: c.version, Fresh: true}
}

// Reset implements §4.5 reset(state): forgets the baseline and immediately
// produces a fresh mount-like payload, advancing the version. Callers
// trigger this explicitly on a client-reported VersionGap or
// PatchApplyFailure (§7).
func (c *Controller) Reset(state map[string]any) (Reset, error) {
	if c.state == StateClosed {
		return Reset{}, newErr(KindEvaluationError, fmt.Sprintf("session %q is closed", c.sessionID), nil)
	}

	tree, err := c.renderTree(c.templatePath, state)
	if err != nil {
		return Reset{}, err
	}

	c.baseline = tree
	c.version++
	c.state = StateLive
	return Reset{HTML: SerializeChildren(tree), Version: c.version}, nil
}

// Close transitions the session to Closed, releasing the baseline. The
// controller is not usable afterward (§4.5 Closed is terminal).
func (c *Controller) Close() {
	c.state = StateClosed
	c.baseline = nil
}

// renderTree runs the resolve → evaluate → normalize → parse pipeline
// shared by Mount, RenderWithDiff, and Reset. Resolver failures
// (TemplateNotFound, CircularInheritance) and parse/evaluation failures
// are returned as-is; none of them mutate c.baseline.
func (c *Controller) renderTree(templatePath string, state map[string]any) (*Node, error) {
	src, err := c.cache.Resolved(templatePath)
	if err != nil {
		return nil, err
	}

	html, err := c.eval.Evaluate(src, state)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeSource(html)
	tree, err := Parse(normalized)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// diffHook is the Diff implementation diffSafely calls through. Tests
// override it to simulate a diff engine panic without needing to construct
// a tree shape that genuinely violates Diff's invariants.
var diffHook = Diff

// diffSafely guards Diff against an internal invariant violation panicking
// mid-walk, converting it into a KindDiffFailure per §7 rather than
// crashing the session's goroutine.
func (c *Controller) diffSafely(old, new *Node) (patches []Patch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newErr(KindDiffFailure, fmt.Sprintf("diff engine panic: %v", r), nil)
		}
	}()
	patches = diffHook(old, new)
	return patches, nil
}
