// Package api exposes a read-only HTTP query surface over a Persisted
// world state (§6): asset and contract lookups and the current root
// hashes, grounded in the teacher's own api package (a mux.Router per
// resource, mounted under a path prefix, wrapped in gorilla/handlers'
// CORS and compression middleware).
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ethereum/go-ethereum/log"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/stateerr"
	"github.com/shardnode/core/worldstate"
)

var logger = log.New("pkg", "api")

// Server serves read-only queries against a fixed Persisted world state.
// Callers swap the Server for a new one (pointing at a later State) once
// a new block has been persisted; Server itself is immutable.
type Server struct {
	state *worldstate.State
}

// New returns a Server backed by state.
func New(state *worldstate.State) *Server {
	return &Server{state: state}
}

// Handler builds the full mux.Router wrapped in CORS and compression
// middleware, ready to be passed to http.ListenAndServe.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	s.mountAssets(router)
	s.mountContracts(router)
	s.mountRoots(router)

	h := handlers.CompressHandler(router)
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)(h)
}

func (s *Server) mountAssets(router *mux.Router) {
	sub := router.PathPrefix("/assets").Subrouter()
	sub.Path("/{ref}").Methods(http.MethodGet).HandlerFunc(wrapHandlerFunc(s.handleGetAsset))
}

func (s *Server) mountContracts(router *mux.Router) {
	sub := router.PathPrefix("/contracts").Subrouter()
	sub.Path("/{id}").Methods(http.MethodGet).HandlerFunc(wrapHandlerFunc(s.handleGetContract))
}

func (s *Server) mountRoots(router *mux.Router) {
	router.Path("/roots").Methods(http.MethodGet).HandlerFunc(wrapHandlerFunc(s.handleGetRoots))
}

func parseHashParam(name string, vars map[string]string) (digest.Hash, error) {
	raw, ok := vars[name]
	if !ok {
		return digest.Hash{}, badRequest(fmt.Errorf("missing path parameter %q", name))
	}
	h, err := digest.Parse(raw)
	if err != nil {
		return digest.Hash{}, badRequest(err)
	}
	return h, nil
}

func mapStateErr(err error) error {
	if stateerr.Is(err, stateerr.KeyNotFound) {
		return notFoundErr(err)
	}
	logger.Error("world state query failed", "err", err)
	return err
}

func (s *Server) handleGetAsset(w http.ResponseWriter, req *http.Request) error {
	ref, err := parseHashParam("ref", mux.Vars(req))
	if err != nil {
		return err
	}
	out, err := s.state.GetAsset(worldstate.TxOutputRef(ref))
	if err != nil {
		return mapStateErr(err)
	}
	return writeJSON(w, out)
}

func (s *Server) handleGetContract(w http.ResponseWriter, req *http.Request) error {
	id, err := parseHashParam("id", mux.Vars(req))
	if err != nil {
		return err
	}
	cs, err := s.state.GetContract(worldstate.ContractId(id))
	if err != nil {
		return mapStateErr(err)
	}
	return writeJSON(w, cs)
}

func (s *Server) handleGetRoots(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, s.state.Roots())
}
