package plot

import (
	"errors"
	"log/slog"

	"github.com/KaramelBytes/edalens/internal/logging"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

// Renderer turns a validated job into an artifact.
type Renderer interface {
	Render(t *table.Table, job Job) (Artifact, error)
}

// Dispatcher validates each request of a plan and renders the survivors.
type Dispatcher struct {
	Renderer Renderer
	Logger   *slog.Logger
}

// Dispatch is shorthand for Dispatcher{Renderer: r}.Dispatch.
func Dispatch(t *table.Table, plan []Request, profiles profiling.Profiles, r Renderer) []Artifact {
	return Dispatcher{Renderer: r}.Dispatch(t, plan, profiles)
}

// Outcome is the result of dispatching one plan.
type Outcome struct {
	Artifacts []Artifact
	// Rejected counts requests that failed validation.
	Rejected int
	// Failed counts validated requests whose renderer returned an error.
	Failed int
}

// Dispatch returns one artifact per request that validates and renders, in
// plan order. Rejected requests and render errors drop only that request.
// Renderer panics propagate.
func (d Dispatcher) Dispatch(t *table.Table, plan []Request, profiles profiling.Profiles) []Artifact {
	return d.Run(t, plan, profiles).Artifacts
}

// Run is Dispatch with rejected and failed requests counted separately.
func (d Dispatcher) Run(t *table.Table, plan []Request, profiles profiling.Profiles) Outcome {
	log := logging.OrDiscard(d.Logger)
	out := Outcome{Artifacts: make([]Artifact, 0, len(plan))}
	for i, req := range plan {
		job, err := Validate(req, t, profiles)
		if err != nil {
			var re *RejectError
			reason := ""
			if errors.As(err, &re) {
				reason = string(re.Reason)
			}
			log.Debug("plot request rejected", slog.Int("index", i), slog.String("reason", reason), slog.String("error", err.Error()))
			out.Rejected++
			continue
		}
		art, err := d.Renderer.Render(t, job)
		if err != nil {
			log.Debug("plot render failed", slog.Int("index", i), slog.String("kind", string(job.Kind)), slog.String("error", err.Error()))
			out.Failed++
			continue
		}
		art.Kind = job.Kind
		art.Columns = job.Columns
		out.Artifacts = append(out.Artifacts, art)
	}
	return out
}
