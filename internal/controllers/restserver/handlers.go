package restserver

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/chrissnell/cplcurtain/internal/curtain"
	"github.com/chrissnell/cplcurtain/internal/types"
	"github.com/chrissnell/cplcurtain/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding %s response: %v", req.URL.Path, err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, msg string) {
	if err := h.formatter.WriteError(w, req, status, msg); err != nil {
		h.controller.logger.Errorf("error encoding %s error response: %v", req.URL.Path, err)
	}
}

// GetSession handles requests for the session summary
func (h *Handlers) GetSession(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, sessionResponse(h.controller.Session))
}

// GetWindows handles requests for the list of synoptic windows
func (h *Handlers) GetWindows(w http.ResponseWriter, req *http.Request) {
	s := h.controller.Session
	windows := make([]WindowResponse, len(s.Windows))
	for i := range s.Windows {
		windows[i] = windowResponse(s, i)
	}
	h.write(w, req, windows)
}

// GetWindow handles requests for one window with its member weights
func (h *Handlers) GetWindow(w http.ResponseWriter, req *http.Request) {
	s := h.controller.Session

	index, err := strconv.Atoi(mux.Vars(req)["index"])
	if err != nil || index < 0 || index >= len(s.Windows) {
		h.fail(w, req, http.StatusNotFound, fmt.Sprintf("window %q not found", mux.Vars(req)["index"]))
		return
	}
	h.write(w, req, windowDetail(s, index))
}

// GetTrack handles requests for the flight track as GeoJSON
func (h *Handlers) GetTrack(w http.ResponseWriter, req *http.Request) {
	points := false
	if v := req.URL.Query().Get("points"); v != "" {
		var err error
		if points, err = strconv.ParseBool(v); err != nil {
			h.fail(w, req, http.StatusBadRequest, "points must be a boolean")
			return
		}
	}

	b, err := trackCollection(h.controller.Session, points).MarshalJSON()
	if err != nil {
		h.controller.logger.Errorf("error encoding track: %v", err)
		http.Error(w, "error encoding track", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(b)
}

// GetFields handles requests for the datasets and sampled variables
func (h *Handlers) GetFields(w http.ResponseWriter, req *http.Request) {
	s := h.controller.Session
	names := s.Names()
	fields := make([]FieldResponse, 0, len(names))
	for _, name := range names {
		f, err := s.Variable(name)
		if err != nil {
			continue
		}
		_, sampled := s.Sampled(name)
		fields = append(fields, FieldResponse{Name: name, Shape: f.Shape, Sampled: sampled})
	}
	h.write(w, req, fields)
}

// GetCurtain handles requests for a curtain image of a 2-D field. Without a
// field in the path the configured curtain field is used. Query parameters
// vmin, vmax, log, lower and title override the configured defaults.
func (h *Handlers) GetCurtain(w http.ResponseWriter, req *http.Request) {
	s := h.controller.Session
	name := mux.Vars(req)["field"]
	if name == "" {
		name = h.controller.Curtain.Field
	}
	if name == "" {
		h.fail(w, req, http.StatusNotFound, "no field requested and curtain.field is not configured")
		return
	}

	opts, err := h.curtainOptions(req)
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Title == "" {
		opts.Title = name
	}

	v, err := s.LidarProfile(name)
	switch {
	case errors.Is(err, types.ErrMissingField):
		h.fail(w, req, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.fail(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cd := h.controller.Curtain
	if cd.Scale != 0 || cd.Abs {
		v.Apply(func(_, _ int, x float64) float64 {
			if cd.Scale != 0 {
				x *= cd.Scale
			}
			if cd.Abs {
				x = math.Abs(x)
			}
			return x
		}, v)
	}

	c, err := curtain.Build(s.Hours(), s.Z, v, opts)
	if err != nil {
		h.fail(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.write(w, req, curtainResponse(name, c, responseformat.Format(req)))
}

func (h *Handlers) curtainOptions(req *http.Request) (curtain.Options, error) {
	cd := h.controller.Curtain
	opts := curtain.Options{
		Title: cd.Title,
		VMin:  cd.VMin,
		VMax:  cd.VMax,
		Log:   cd.Log,
		Lower: cd.Lower,
	}

	q := req.URL.Query()
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}
	for key, dst := range map[string]**float64{"vmin": &opts.VMin, "vmax": &opts.VMax} {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, fmt.Errorf("%s must be a number", key)
			}
			*dst = &f
		}
	}
	for key, dst := range map[string]*bool{"log": &opts.Log, "lower": &opts.Lower} {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("%s must be a boolean", key)
			}
			*dst = b
		}
	}

	if opts.VMin != nil && opts.VMax != nil && *opts.VMin >= *opts.VMax {
		return opts, fmt.Errorf("vmin must be below vmax")
	}
	return opts, nil
}
