package mockserver

import (
	"encoding/json"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
	"github.com/gorilla/mux"
)

/*
	链下的模拟喂价服务，接口与 MockV3Aggregator 一致
	GET  /decimals
	GET  /latestRoundData
	POST /updateAnswer {"answer": "200000000000"}
*/

type Server struct {
	mu       sync.RWMutex
	decimals uint8
	round    meta.RoundData
	now      func() time.Time
	onUpdate []func(decimals uint8, round meta.RoundData)
}

func NewServer(decimals uint8, initialAnswer *big.Int) *Server {
	s := &Server{decimals: decimals, now: time.Now}
	s.UpdateAnswer(initialAnswer)
	return s
}

// 每次报价更新后回调（如同步写入 redis）
func (s *Server) OnUpdate(fn func(decimals uint8, round meta.RoundData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, fn)
	fn(s.decimals, s.round)
}

// 开启新一轮报价
func (s *Server) UpdateAnswer(answer *big.Int) meta.RoundData {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := big.NewInt(1)
	if s.round.RoundId != nil {
		next.Add(s.round.RoundId, big.NewInt(1))
	}
	ts := big.NewInt(s.now().Unix())
	s.round = meta.RoundData{
		RoundId:         next,
		Answer:          new(big.Int).Set(answer),
		StartedAt:       ts,
		UpdatedAt:       new(big.Int).Set(ts),
		AnsweredInRound: new(big.Int).Set(next),
	}
	for _, fn := range s.onUpdate {
		fn(s.decimals, s.round)
	}
	return s.round
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/decimals", s.handleDecimals).Methods(http.MethodGet)
	r.HandleFunc("/latestRoundData", s.handleLatestRoundData).Methods(http.MethodGet)
	r.HandleFunc("/updateAnswer", s.handleUpdateAnswer).Methods(http.MethodPost)
	return r
}

func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Handler:      s.Handler(),
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Infof("mock price feed listening on %s", addr)
	return server.ListenAndServe()
}

func (s *Server) handleDecimals(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]uint8{"decimals": s.decimals})
}

func (s *Server) handleLatestRoundData(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.round)
}

func (s *Server) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	answer, ok := new(big.Int).SetString(req.Answer, 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid answer " + req.Answer})
		return
	}
	writeJSON(w, http.StatusOK, s.UpdateAnswer(answer))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("write response error: %s", err)
	}
}
