package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// PermissionChecker decides whether a user holds a permission level.
type PermissionChecker interface {
	Allowed(ctx context.Context, req *Request, perm Permission) (bool, error)
}

// CommandEntry is one row of the command usage log.
type CommandEntry struct {
	CorrelationID string
	GuildID       string
	ChannelID     string
	AuthorID      int64
	Prefix        string
	Command       string
	Used          time.Time
	Failed        bool
}

// CommandLogger stores command usage.
type CommandLogger interface {
	LogCommand(ctx context.Context, entry CommandEntry) error
}

// Router resolves and runs commands.
type Router struct {
	mu       sync.RWMutex
	commands map[string]*Command
	ordered  []*Command

	perms     PermissionChecker
	usage     CommandLogger
	publisher eventbus.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   observability.Metrics
}

// NewRouter builds an empty router. usage and publisher may be nil.
func NewRouter(perms PermissionChecker, usage CommandLogger, publisher eventbus.Publisher, obs observability.Observability) *Router {
	return &Router{
		commands:  map[string]*Command{},
		perms:     perms,
		usage:     usage,
		publisher: publisher,
		logger:    obs.Logger.With(attr.String("component", "command_router")),
		tracer:    obs.Tracer,
		metrics:   obs.Metrics,
	}
}

// SetCommandLogger installs the usage logger after construction.
func (r *Router) SetCommandLogger(l CommandLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = l
}

// Register adds commands. Registering a duplicate name is an error.
func (r *Router) Register(cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range cmds {
		cmd := cmds[i]
		if cmd.Handler == nil {
			return fmt.Errorf("command %q has no handler", cmd.Name)
		}
		keys := append([]string{cmd.Name}, cmd.Aliases...)
		for _, k := range keys {
			k = strings.ToLower(k)
			if _, dup := r.commands[k]; dup {
				return fmt.Errorf("command %q registered twice", k)
			}
			r.commands[k] = &cmd
		}
		r.ordered = append(r.ordered, &cmd)
	}
	return nil
}

// Commands returns every registered command, sorted by group then name.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.ordered))
	for _, c := range r.ordered {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Resolve finds the command for a name and its args. A two-word
// subcommand ("warrole add") wins over the bare group name.
func (r *Router) Resolve(name string, args []string) (*Command, []string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(args) > 0 {
		if cmd, ok := r.commands[name+" "+strings.ToLower(args[0])]; ok {
			return cmd, args[1:], true
		}
	}
	cmd, ok := r.commands[name]
	return cmd, args, ok
}

// Dispatch runs the command named in req. It returns nil, nil when no
// command matches.
func (r *Router) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	cmd, args, ok := r.Resolve(req.Name, req.Args)
	if !ok {
		return nil, nil
	}
	req.Args = args

	correlationID := uuid.New().String()
	ctx = attr.WithCorrelationID(ctx, correlationID)
	ctx, span := r.tracer.Start(ctx, "command."+cmd.Name, trace.WithAttributes(
		attribute.String("command", cmd.Name),
		attribute.Int64("author_id", req.AuthorID),
	))
	defer span.End()

	logger := r.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.String("command", cmd.Name),
		attr.Int64("author_id", req.AuthorID),
	)

	if cmd.Permission != PermEveryone {
		allowed, err := r.perms.Allowed(ctx, req, cmd.Permission)
		if err != nil {
			logger.ErrorContext(ctx, "Permission check failed", attr.Error(err))
			return Text("I couldn't check your permissions, try again later."), nil
		}
		if !allowed {
			logger.InfoContext(ctx, "Command denied")
			return Text(fmt.Sprintf("You need the **%s** permission to use `%s`.", cmd.Permission, cmd.Name)), nil
		}
	}

	start := time.Now()
	r.metrics.RecordOperationAttempt(ctx, cmd.Name, "command")
	resp, err := r.invoke(ctx, cmd, req)
	r.metrics.RecordOperationDuration(ctx, cmd.Name, "command", time.Since(start))

	var userErr *UserError
	failed := err != nil && !errors.As(err, &userErr)
	r.record(ctx, cmd, req, correlationID, failed)

	switch {
	case err == nil:
		r.metrics.RecordOperationSuccess(ctx, cmd.Name, "command")
		logger.InfoContext(ctx, "Command completed", attr.Duration("took", time.Since(start)))
		if cmd.Permission != PermEveryone {
			r.publish(ctx, eventbus.TopicInfoLog, eventbus.Notice{
				Title:       "Command used",
				Description: fmt.Sprintf("%s used `%s%s %s` in <#%s>", Mention(req.AuthorID), req.Prefix, cmd.Name, strings.Join(req.Args, " "), req.ChannelID),
				Color:       eventbus.ColorBlue,
			})
		}
		return resp, nil
	case !failed:
		r.metrics.RecordOperationSuccess(ctx, cmd.Name, "command")
		return Text(userErr.Msg), nil
	default:
		r.metrics.RecordOperationFailure(ctx, cmd.Name, "command")
		span.RecordError(err)
		logger.ErrorContext(ctx, "Command failed", attr.Error(err))
		r.publish(ctx, eventbus.TopicInfoLog, eventbus.Notice{
			Title:       "Command error",
			Description: fmt.Sprintf("`%s` invoked by %s failed:\n```%s```", cmd.Name, Mention(req.AuthorID), err.Error()),
			Color:       eventbus.ColorRed,
			Fields:      []eventbus.Field{{Name: "Correlation", Value: correlationID}},
		})
		return Text("Something went wrong running that command. The error has been logged."), nil
	}
}

func (r *Router) invoke(ctx context.Context, cmd *Command, req *Request) (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in command %s: %v", cmd.Name, p)
		}
	}()
	return cmd.Handler(ctx, req)
}

func (r *Router) record(ctx context.Context, cmd *Command, req *Request, correlationID string, failed bool) {
	r.mu.RLock()
	usage := r.usage
	r.mu.RUnlock()
	if usage == nil {
		return
	}
	entry := CommandEntry{
		CorrelationID: correlationID,
		GuildID:       req.GuildID,
		ChannelID:     req.ChannelID,
		AuthorID:      req.AuthorID,
		Prefix:        req.Prefix,
		Command:       cmd.Name,
		Used:          req.Received,
		Failed:        failed,
	}
	if entry.Used.IsZero() {
		entry.Used = time.Now().UTC()
	}
	if err := usage.LogCommand(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "Failed to log command usage", attr.Error(err))
	}
}

func (r *Router) publish(ctx context.Context, topic string, n eventbus.Notice) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, topic, n); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish command notice", attr.Error(err))
	}
}
