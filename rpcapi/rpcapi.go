// Package rpcapi exposes the node's operations as a JSON-over-HTTP
// service: keys, keysets, swap, mint quote/mint, melt quote/melt,
// info and check-state (spec §6). Grounded on mint/manager/server.go's
// gorilla/mux HTTP server in the teacher; the protobuf/grpc-gateway
// surface in mint/server.go is dropped (see DESIGN.md) in favor of
// this module's own wire shapes under nut/.
package rpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/node"
)

type Server struct {
	httpServer *http.Server
	node       *node.Node
	logger     *slog.Logger
}

func New(n *node.Node, addr string, logger *slog.Logger) *Server {
	s := &Server{node: n, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/v1/keys", s.getKeys).Methods(http.MethodGet)
	r.HandleFunc("/v1/keys/{id}", s.getKeysByID).Methods(http.MethodGet)
	r.HandleFunc("/v1/keysets", s.getKeysets).Methods(http.MethodGet)
	r.HandleFunc("/v1/swap", s.postSwap).Methods(http.MethodPost)
	r.HandleFunc("/v1/mint/quote", s.postMintQuote).Methods(http.MethodPost)
	r.HandleFunc("/v1/mint/quote/{quote_id}", s.getMintQuote).Methods(http.MethodGet)
	r.HandleFunc("/v1/mint", s.postMint).Methods(http.MethodPost)
	r.HandleFunc("/v1/melt/quote", s.postMeltQuote).Methods(http.MethodPost)
	r.HandleFunc("/v1/melt/quote/{quote_id}", s.getMeltQuote).Methods(http.MethodGet)
	r.HandleFunc("/v1/melt", s.postMelt).Methods(http.MethodPost)
	r.HandleFunc("/v1/info", s.getInfo).Methods(http.MethodGet)
	r.HandleFunc("/v1/checkstate", s.postCheckState).Methods(http.MethodPost)
	r.Use(setupHeaders)

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func setupHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		rw.Header().Set("Access-Control-Allow-Credentials", "true")
		rw.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		rw.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, origin")

		if req.Method == http.MethodOptions {
			rw.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

// decodeJsonReqBody mirrors the teacher's server.go helper of the same
// name, swapping cashu.Error for cashuerr.Error.
func decodeJsonReqBody(req *http.Request, dst any) error {
	ct := req.Header.Get("Content-Type")
	if ct != "" {
		mediaType := strings.ToLower(strings.Split(ct, ";")[0])
		if mediaType != "application/json" {
			return cashuerr.Build("Content-Type header is not application/json", cashuerr.StandardErrCode)
		}
	}

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxErr):
			return cashuerr.Build(fmt.Sprintf("bad json at %d", syntaxErr.Offset), cashuerr.StandardErrCode)
		case errors.As(err, &typeErr):
			return cashuerr.Build(fmt.Sprintf("invalid %v for field %q", typeErr.Value, typeErr.Field), cashuerr.StandardErrCode)
		case errors.Is(err, io.EOF):
			return cashuerr.Build("request body is empty", cashuerr.StandardErrCode)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return cashuerr.Build(fmt.Sprintf("request body contains unknown field %s", field), cashuerr.StandardErrCode)
		default:
			return cashuerr.Build(err.Error(), cashuerr.StandardErrCode)
		}
	}
	return nil
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func (s *Server) writeErr(rw http.ResponseWriter, err error) {
	var cashuErr *cashuerr.Error
	if errors.As(err, &cashuErr) {
		writeJSON(rw, http.StatusBadRequest, cashuErr)
		return
	}
	if s.logger != nil {
		s.logger.Error("rpcapi: internal error", "err", err)
	}
	writeJSON(rw, http.StatusInternalServerError, cashuerr.Build(err.Error(), cashuerr.StandardErrCode))
}
