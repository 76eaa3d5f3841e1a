package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matrixise/xpr-wallet/internal/history"
	"github.com/matrixise/xpr-wallet/internal/nfts"
)

// queryInt reads a non-negative integer query parameter, def when absent.
func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if s.svc.Balances == nil {
		writeError(w, http.StatusNotImplemented, "balances not available")
		return
	}
	account := chi.URLParam(r, "account")
	net := networkFrom(r)

	portfolio, err := s.svc.Balances.Fetch(r.Context(), account, net)
	if err != nil {
		s.logger.Error("Balance fetch failed", "network", net.Name, "account", account, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch balances")
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.svc.History == nil {
		writeError(w, http.StatusNotImplemented, "history not available")
		return
	}
	limit, ok := queryInt(r, "limit", history.DefaultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	skip, ok := queryInt(r, "skip", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid skip")
		return
	}

	result := s.svc.History.FetchTransfers(r.Context(), chi.URLParam(r, "account"), networkFrom(r), history.Page{Limit: limit, Skip: skip})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNFTs(w http.ResponseWriter, r *http.Request) {
	if s.svc.NFTs == nil {
		writeError(w, http.StatusNotImplemented, "nfts not available")
		return
	}
	page, ok := queryInt(r, "page", 1)
	if !ok || page == 0 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	limit, ok := queryInt(r, "limit", nfts.PageSize)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	result := s.svc.NFTs.FetchNFTs(r.Context(), chi.URLParam(r, "account"), networkFrom(r), nfts.Options{
		Limit:      limit,
		Page:       page,
		Collection: r.URL.Query().Get("collection"),
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if s.svc.NFTs == nil {
		writeError(w, http.StatusNotImplemented, "nfts not available")
		return
	}
	collections := s.svc.NFTs.FetchCollections(r.Context(), chi.URLParam(r, "account"), networkFrom(r))
	writeJSON(w, http.StatusOK, map[string][]string{"collections": collections})
}

func (s *Server) handleVoter(w http.ResponseWriter, r *http.Request) {
	if s.svc.Voting == nil {
		writeError(w, http.StatusNotImplemented, "voting not available")
		return
	}
	// A null body means the account never voted
	info := s.svc.Voting.FetchVoterInfo(r.Context(), chi.URLParam(r, "account"), networkFrom(r))
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleProducers(w http.ResponseWriter, r *http.Request) {
	if s.svc.Voting == nil {
		writeError(w, http.StatusNotImplemented, "voting not available")
		return
	}
	producers := s.svc.Voting.FetchProducers(r.Context(), networkFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{"producers": producers})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if s.svc.Tokens == nil {
		writeError(w, http.StatusNotImplemented, "tokens not available")
		return
	}
	list := s.svc.Tokens.FetchMetadata(r.Context(), networkFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{"tokens": list})
}
