// Package hostcall adapts named operations to the host invocation boundary.
//
// Callers use lowerCamel operation names with positional arguments. The
// boundary expects snake_case names and a named argument object, so the
// Client maps one onto the other using a fixed operation table.
package hostcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/daisy/internal/ir"
)

// ErrUnknownOperation is returned for operations missing from the table.
var ErrUnknownOperation = errors.New("unknown host operation")

// ErrArity is returned when more positional args are given than declared.
var ErrArity = errors.New("too many arguments for host operation")

var upperRe = regexp.MustCompile(`([A-Z])`)

// BoundaryName converts an operation name to the boundary casing:
// a "_" is inserted before every upper-case letter and the result is
// lower-cased. The conversion is total but not reversible.
//
//	runAction      -> run_action
//	getScriptById  -> get_script_by_id
func BoundaryName(op string) string {
	return strings.ToLower(upperRe.ReplaceAllString(op, "_$1"))
}

// Host performs one request/response round trip with the host process.
type Host interface {
	Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error)
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context, op string, args map[string]any) (json.RawMessage, error)

// Invoke implements Host.
func (f HostFunc) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	return f(ctx, op, args)
}

// Operations maps each operation to its positional argument names.
var Operations = map[string][]string{
	"registerAction":        {"actionType", "name", "args"},
	"registerTrigger":       {"triggerType", "name", "args"},
	"getLitTrigger":         {},
	"getLitAction":          {},
	"updateActionPlug":      {"id", "plug"},
	"getScriptById":         {"actionId"},
	"getServiceState":       {},
	"launchService":         {},
	"getServiceStateFile":   {},
	"createTask":            {"triggerId", "name", "workflow"},
	"runActionById":         {"id"},
	"runAction":             {"actionType", "args"},
	"removeAction":          {"id"},
	"removeTrigger":         {"id"},
	"removeTask":            {"id"},
	"isCronExpressionVaild": {"expression"},
	"get_config":            {},
	"openWindow":            {},
}

// Client invokes table operations on a Host.
type Client struct {
	host   Host
	logger *zap.Logger
}

// NewClient creates a Client. A nil logger falls back to zap.L().
func NewClient(host Host, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.L()
	}
	return &Client{host: host, logger: logger}
}

// Call invokes op with positional args. Missing trailing args are omitted
// from the named argument object.
func (c *Client) Call(ctx context.Context, op string, args ...any) (json.RawMessage, error) {
	names, ok := Operations[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if len(args) > len(names) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, op, len(names), len(args))
	}

	named := make(map[string]any, len(args))
	for i, arg := range args {
		named[names[i]] = arg
	}

	boundary := BoundaryName(op)
	start := time.Now()
	out, err := c.host.Invoke(ctx, boundary, named)
	if err != nil {
		c.logger.Warn("host call failed",
			zap.String("op", boundary),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", boundary, err)
	}
	c.logger.Debug("host call",
		zap.String("op", boundary),
		zap.Int("args", len(named)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// RunAction asks the host to run a card by name with a packed argument.
func (c *Client) RunAction(ctx context.Context, actionType string, args ir.Envelope) error {
	_, err := c.Call(ctx, "runAction", actionType, ir.Data{Envelope: args})
	return err
}

// RunActionByID runs a persisted action instance.
func (c *Client) RunActionByID(ctx context.Context, id string) error {
	_, err := c.Call(ctx, "runActionById", id)
	return err
}

// GetScriptByID fetches the persisted script source of an action.
// A null or empty result yields "".
func (c *Client) GetScriptByID(ctx context.Context, actionID string) (string, error) {
	raw, err := c.Call(ctx, "getScriptById", actionID)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var script string
	if err := json.Unmarshal(raw, &script); err != nil {
		return "", fmt.Errorf("decode script: %w", err)
	}
	return script, nil
}

// IsCronExpressionValid asks the host to validate a cron expression.
func (c *Client) IsCronExpressionValid(ctx context.Context, expr string) (bool, error) {
	raw, err := c.Call(ctx, "isCronExpressionVaild", expr)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("decode cron validity: %w", err)
	}
	return ok, nil
}

// GetServiceState returns the host service state name.
func (c *Client) GetServiceState(ctx context.Context) (ServiceState, error) {
	raw, err := c.Call(ctx, "getServiceState")
	if err != nil {
		return "", err
	}
	var s ServiceState
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode service state: %w", err)
	}
	return s, nil
}

// ServiceState is the lifecycle state reported by the host service.
type ServiceState string

const (
	ServiceStopped         ServiceState = "Stopped"
	ServiceStartPending    ServiceState = "StartPending"
	ServiceStopPending     ServiceState = "StopPending"
	ServiceRunning         ServiceState = "Running"
	ServiceContinuePending ServiceState = "ContinuePending"
	ServicePausePending    ServiceState = "PausePending"
	ServicePaused          ServiceState = "Paused"
)
