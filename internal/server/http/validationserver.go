package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/validationsvc"
	"github.com/codec404/Konfig/pkg/log"
)

// ValidationServer exposes validationsvc.Service over HTTP/JSON, the
// transport internal/validatorclient.Client talks to.
type ValidationServer struct {
	svc    *validationsvc.Service
	srv    *http.Server
	lis    net.Listener
	logger log.Logger
}

func NewValidationServer(svc *validationsvc.Service, logger log.Logger) *ValidationServer {
	mux := http.NewServeMux()
	s := &ValidationServer{svc: svc, srv: &http.Server{Handler: cors(mux)}, logger: logger}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/validate", s.handleValidate)
	mux.HandleFunc("/v1/schemas/register", s.handleRegisterSchema)
	mux.HandleFunc("/v1/schemas/get", s.handleGetSchema)
	mux.HandleFunc("/v1/schemas/list", s.handleListSchemas)
	return s
}

func (s *ValidationServer) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *ValidationServer) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *ValidationServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *ValidationServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req model.ValidateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Validate(r.Context(), req))
}

func (s *ValidationServer) handleRegisterSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req model.RegisterSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.RegisterSchema(r.Context(), req))
}

func (s *ValidationServer) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.GetSchema(r.Context(), r.URL.Query().Get("schema_id")))
}

func (s *ValidationServer) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	writeJSON(w, http.StatusOK, s.svc.ListSchemas(r.Context(), q.Get("service_name"), limit, offset))
}
