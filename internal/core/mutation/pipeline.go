package mutation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/validation"
	"github.com/shopneo/console/internal/transport"
)

type Sender interface {
	SendMultipart(ctx context.Context, method, path string, payload *transport.Payload, out interface{}) error
	Delete(ctx context.Context, path string) error
}

// Pipeline creates, updates and deletes records of one entity. It reports
// outcomes and leaves refreshing collections to the caller.
type Pipeline struct {
	def       *resource.Definition
	api       Sender
	validator *validation.Validator
	reporter  Reporter
	log       zerolog.Logger
}

func NewPipeline(def *resource.Definition, api Sender, validator *validation.Validator, reporter Reporter, log zerolog.Logger) *Pipeline {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if validator == nil {
		validator = validation.NewValidator()
	}
	return &Pipeline{
		def:       def,
		api:       api,
		validator: validator,
		reporter:  reporter,
		log:       log.With().Str("entity", def.Name).Logger(),
	}
}

func (p *Pipeline) Definition() *resource.Definition { return p.def }

// Submit creates the record when key has no id and updates it otherwise.
// Validation failures settle without a request.
func (p *Pipeline) Submit(ctx context.Context, key resource.Key, form *FormState) Outcome {
	op, tmpl, method, fallback := OpUpdate, p.def.Endpoints.Update, http.MethodPut, p.def.Messages.Update
	if key.IsNew() {
		op, tmpl, method, fallback = OpCreate, p.def.Endpoints.Create, http.MethodPost, p.def.Messages.Create
	}
	base := Outcome{Op: op, Entity: p.def.Name, Key: key}

	if err := Validate(p.validator, p.def, key, form); err != nil {
		out := p.failure(base, err, fallback)
		if ve := validation.GetValidationErrors(err); ve != nil {
			out.Reason = ve.Error()
			out.Fields = ve.Fields()
		}
		return p.settle(out)
	}

	path, err := p.def.Path(tmpl, key)
	if err != nil {
		return p.settle(p.failure(base, err, fallback))
	}
	payload, err := Encode(p.def, key, form)
	if err != nil {
		return p.settle(p.failure(base, err, fallback))
	}

	pending := base
	pending.Status = StatusPending
	p.reporter.Report(pending)

	var body json.RawMessage
	if err := p.api.SendMultipart(ctx, method, path, payload, &body); err != nil {
		return p.settle(p.failure(base, err, fallback))
	}

	rec, err := resource.DecodeItem(p.def, path, body, key.ParentID)
	if err != nil {
		return p.settle(p.failure(base, err, fallback))
	}

	out := base
	out.Status = StatusSuccess
	out.Key = rec.Key()
	out.Record = rec
	return p.settle(out)
}

// Remove deletes the record at key. Callers confirm with the operator first.
func (p *Pipeline) Remove(ctx context.Context, key resource.Key) Outcome {
	base := Outcome{Op: OpDelete, Entity: p.def.Name, Key: key}
	fallback := p.def.Messages.Delete

	path, err := p.def.Path(p.def.Endpoints.Delete, key)
	if err != nil {
		return p.settle(p.failure(base, err, fallback))
	}

	pending := base
	pending.Status = StatusPending
	p.reporter.Report(pending)

	if err := p.api.Delete(ctx, path); err != nil {
		return p.settle(p.failure(base, err, fallback))
	}

	out := base
	out.Status = StatusSuccess
	return p.settle(out)
}

func (p *Pipeline) failure(base Outcome, err error, fallback string) Outcome {
	base.Status = StatusFailure
	base.Err = err
	base.Reason = transport.PublicMessage(err, fallback)
	return base
}

func (p *Pipeline) settle(out Outcome) Outcome {
	event := p.log.Info()
	if out.Status == StatusFailure {
		event = p.log.Warn().Err(out.Err)
	}
	event.
		Str("op", string(out.Op)).
		Str("key", out.Key.String()).
		Str("status", string(out.Status)).
		Msg("mutation settled")

	p.reporter.Report(out)
	return out
}
