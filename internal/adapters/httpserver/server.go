package httpserver

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/expressbi/internal/adapters/ws"
	"github.com/phenrril/expressbi/internal/domain"
	"github.com/phenrril/expressbi/internal/usecase"
)

const (
	msgRegistered     = "Cliente cadastrado com sucesso!"
	msgRegisterFailed = "Erro ao cadastrar cliente. Tente novamente."
	msgNoData         = "Nenhum dado encontrado para exportar."
	msgExportFailed   = "Erro ao exportar dados. Tente novamente."
)

type Server struct {
	mux       *http.ServeMux
	tmpl      *template.Template
	customers *usecase.CustomerUC
	live      *usecase.LiveList
	hub       *ws.Hub
}

// Notice es el aviso que se muestra arriba del formulario.
type Notice struct {
	Kind string
	Text string
}

func New(t *template.Template, customers *usecase.CustomerUC, live *usecase.LiveList, hub *ws.Hub) http.Handler {
	s := &Server{mux: http.NewServeMux(), tmpl: t, customers: customers, live: live, hub: hub}
	s.routes()
	return Chain(s.mux,
		SecurityHeaders,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/clientes", s.handleRegister)
	s.mux.HandleFunc("/clientes/export", s.handleExport)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)

	s.mux.HandleFunc("/api/clientes", s.apiClientes)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method", 405)
		return
	}
	s.renderPage(w, http.StatusOK, nil, usecase.RegisterInput{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	in := usecase.RegisterInput{
		Name:      r.PostFormValue("nome"),
		BirthDate: r.PostFormValue("nascimento"),
		Email:     r.PostFormValue("email"),
		TaxID:     r.PostFormValue("cpf"),
		Notes:     r.PostFormValue("observacoes"),
		Revenue:   r.PostFormValue("faturamento"),
		Status:    r.PostFormValue("status"),
	}
	key, err := s.customers.Register(r.Context(), in)
	if err != nil {
		log.Error().Err(err).Msg("erro ao cadastrar cliente")
		s.renderPage(w, http.StatusBadGateway, &Notice{Kind: "error", Text: msgRegisterFailed}, in)
		return
	}
	log.Info().Str("id", key).Msg("cliente cadastrado")
	s.renderPage(w, http.StatusOK, &Notice{Kind: "success", Text: msgRegistered}, usecase.RegisterInput{})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	data, err := s.customers.Export(r.Context())
	if errors.Is(err, domain.ErrNoData) {
		s.renderPage(w, http.StatusOK, &Notice{Kind: "info", Text: msgNoData}, usecase.RegisterInput{})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("erro ao exportar dados")
		s.renderPage(w, http.StatusBadGateway, &Notice{Kind: "error", Text: msgExportFailed}, usecase.RegisterInput{})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+usecase.ExportFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

type apiRegisterReq struct {
	Nome        string          `json:"nome"`
	Nascimento  string          `json:"nascimento"`
	Email       string          `json:"email"`
	CPF         string          `json:"cpf"`
	Observacoes string          `json:"observacoes"`
	Faturamento json.RawMessage `json:"faturamento"`
	Status      string          `json:"status"`
}

func (s *Server) apiClientes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.live.Items())
	case http.MethodPost:
		var req apiRegisterReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		in := usecase.RegisterInput{
			Name:      req.Nome,
			BirthDate: req.Nascimento,
			Email:     req.Email,
			TaxID:     req.CPF,
			Notes:     req.Observacoes,
			// acepta número o texto, igual que el formulario
			Revenue: strings.Trim(string(req.Faturamento), `"`),
			Status:  req.Status,
		}
		key, err := s.customers.Register(r.Context(), in)
		if err != nil {
			log.Error().Err(err).Msg("erro ao cadastrar cliente")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": msgRegisterFailed})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": key})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clientes": len(s.live.Items()), "ws": s.hub.ConnectionCount()})
}

func (s *Server) renderPage(w http.ResponseWriter, code int, n *Notice, form usecase.RegisterInput) {
	s.render(w, code, "index.html", map[string]any{
		"Notice":   n,
		"Form":     form,
		"Clientes": s.live.Items(),
	})
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("tpl", name).Msg("render")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
