/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// go-probe API
//
// # RESTful APIs to interact with the go-probe server
//
// Schemes: http
// Host: localhost:8000
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package control

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"ezemfi.io/go-probe/pkg/codec"
	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/log"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/srv"
	"ezemfi.io/go-probe/pkg/srv/control/ifc"
)

//go:embed swagger.json
var swaggerJSON []byte

const DefaultBramReadCount = 16

// RegHex ...
type RegHex struct {
	Addr  string // hexadecimal
	Value string // hexadecimal
}

// InputSetup sets input A either in volts or as a raw sample
type InputSetup struct {
	Volts *float64 `json:"volts,omitempty"`
	Raw   *int16   `json:"raw,omitempty"`
}

type BramLoad struct {
	Addr  uint16   `json:"addr"`
	Words []uint32 `json:"words"`
}

// probeActions maps API actions to button signals
var probeActions = map[string]string{
	"arm":   regmap.SignalArm,
	"fire":  regmap.SignalForceFire,
	"reset": regmap.SignalResetFSM,
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl ifc.ControlServer
	doc  *loads.Document
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl ifc.ControlServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())

	doc, err := loads.Analyzed(swaggerJSON, "")
	if err != nil {
		return nil, err
	}

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
		doc:     doc,
	}
	s.configureRouter()
	return s, nil
}

// Handler is the router wrapped into recovery, logging and docs middleware.
func (s *ApiServer) Handler() http.Handler {
	var h http.Handler = s.Router
	h = middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    "go-probe API",
	}, h)
	h = middleware.Spec("/", s.doc.Raw(), h)
	h = handlers.LoggingHandler(log.Writer(log.DebugLevel), h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.RecoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)
}

// Start
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddr(),
	}
	go func() {
		<-s.Context.Done()
		_ = httpServer.Shutdown(context.Background())
	}()
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/reg/r/{addr:0x[0-9a-fA-F]{4}}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg/r", s.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/reg/w", s.handleRegWrite()).Methods("POST")
	subRouter.HandleFunc("/probe/{action:arm|fire|reset|reset-all}", s.handleProbeAction()).Methods("POST")
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/input", s.handleInput()).Methods("POST")
	subRouter.HandleFunc("/bram", s.handleBramLoad()).Methods("POST")
	subRouter.HandleFunc("/bram/{addr}", s.handleBramRead()).Methods("GET")
	subRouter.HandleFunc("/runs", s.handleRuns()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

// regError maps register errors to HTTP status codes
func regError(w http.ResponseWriter, err error) {
	var notMapped regmap.ErrRegisterNotMapped
	var readOnly srv.ErrReadOnly
	switch {
	case errors.As(err, &notMapped):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &readOnly):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, srv.ErrStopped{}):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: addr: %s", vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 16)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg, err := s.ctrl.RegRead(uint16(addr))
		if err != nil {
			regError(w, err)
			return
		}
		hexAddr, hexValue := reg.Hex()
		writeJSON(w, &RegHex{Addr: hexAddr, Value: hexValue})
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reg read all request")
		regs, err := s.ctrl.RegReadAll()
		if err != nil {
			regError(w, err)
			return
		}
		regsHex := []*RegHex{}
		for _, reg := range regs {
			hexAddr, hexValue := reg.Hex()
			regsHex = append(regsHex, &RegHex{Addr: hexAddr, Value: hexValue})
		}
		writeJSON(w, regsHex)
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling reg write request: addr: %s value: %s", regHex.Addr, regHex.Value)

		reg, err := layers.NewRegFromHex(regHex.Addr, regHex.Value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = s.ctrl.RegWrite(reg); err != nil {
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleProbeAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling probe action request: action: %s", vars["action"])

		var err error
		if vars["action"] == "reset-all" {
			err = s.ctrl.ResetAll()
		} else if signal, ok := probeActions[vars["action"]]; ok {
			err = s.ctrl.Press(signal)
		} else {
			err = srv.ErrUnknownOperation{What: "Wrong probe action. Must be one of arm/fire/reset/reset-all"}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.ctrl.Snapshot()
		if err != nil {
			regError(w, err)
			return
		}
		writeJSON(w, snap)
	}
}

func (s *ApiServer) handleInput() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &InputSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var v int16
		switch {
		case setup.Raw != nil:
			v = *setup.Raw
		case setup.Volts != nil:
			v = codec.VoltsToDigital(*setup.Volts)
		default:
			http.Error(w, "one of volts or raw is required", http.StatusBadRequest)
			return
		}
		log.Debug("Handling input request: sample: %d", v)
		if err := s.ctrl.SetInput(v); err != nil {
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleBramLoad() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		load := &BramLoad{}
		if err := json.NewDecoder(r.Body).Decode(load); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling BRAM load request: addr: %d words: %d", load.Addr, len(load.Words))
		if err := s.ctrl.Load(load.Addr, load.Words); err != nil {
			var outOfRange srv.ErrOutOfRange
			if errors.As(err, &outOfRange) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleBramRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		addr, err := strconv.ParseUint(vars["addr"], 0, 16)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		count, err := queryInt(r, "count", DefaultBramReadCount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		words, err := s.ctrl.BramRead(uint16(addr), count)
		if err != nil {
			var outOfRange srv.ErrOutOfRange
			if errors.As(err, &outOfRange) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			regError(w, err)
			return
		}
		writeJSON(w, &BramLoad{Addr: uint16(addr), Words: words})
	}
}

func (s *ApiServer) handleRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", 0)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		runs, err := s.ctrl.Runs(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, runs)
	}
}
