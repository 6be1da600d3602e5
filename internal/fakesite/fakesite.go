package fakesite

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Site paths.
const (
	EntryPath = "/en-us/Leaderboards/SOCOM4"
	GatePath  = "/?url=%2fen-us%2fLeaderboards%2fSOCOM4"
)

// Form fields the server inspects.
const (
	fieldRank    = "ctl00$phContent$leaderboards$txtRank"
	fieldGoTo    = "ctl00$phContent$leaderboards$btnGoToRank"
	targetNext   = "ctl00$phContent$leaderboards$pager$btnNext"
	gateCookie   = "agegate"
	gateStateVal = "gate-state"
)

// Options configures a Server.
type Options struct {
	// Records is the number of players on the board. Default 45.
	Records int

	// PageSize is the number of rows per page. Default 20.
	PageSize int

	// Name returns the display name of the player at rank i (1-based).
	// Default "player%03d".
	Name func(i int) string

	// FailPage makes postbacks for this page answer 500.
	FailPage int

	// MalformedPage adds a three-cell row to this page.
	MalformedPage int

	// DropViewStatePage omits the view state token from this page.
	DropViewStatePage int

	// DropPreviousPagePage omits the previous page token from postback
	// responses for this page.
	DropPreviousPagePage int

	// Latin1 encodes responses as ISO-8859-1.
	Latin1 bool

	// Delay is slept before every leaderboard response.
	Delay time.Duration
}

// Server is a running fake leaderboard.
type Server struct {
	*httptest.Server

	opts     Options
	requests atomic.Int64

	mu     sync.Mutex
	served map[int]int
}

// New starts a Server. Callers must Close it.
func New(opts Options) *Server {
	if opts.Records == 0 {
		opts.Records = 45
	}
	if opts.PageSize == 0 {
		opts.PageSize = 20
	}
	if opts.Name == nil {
		opts.Name = func(i int) string { return fmt.Sprintf("player%03d", i) }
	}

	s := &Server{opts: opts, served: make(map[int]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleGate)
	mux.HandleFunc(EntryPath, s.handleBoard)
	s.Server = httptest.NewServer(mux)
	return s
}

// Pages returns the number of leaderboard pages.
func (s *Server) Pages() int {
	return (s.opts.Records + s.opts.PageSize - 1) / s.opts.PageSize
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Served returns how often each page was rendered.
func (s *Server) Served() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.served))
	for k, v := range s.served {
		out[k] = v
	}
	return out
}

// PlayerName returns the name of the player at rank i.
func (s *Server) PlayerName(i int) string {
	return s.opts.Name(i)
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	if r.URL.Path != "/" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("__VIEWSTATE") != gateStateVal || r.PostForm.Get("dlDate3") == "" {
		http.Error(w, "bad gate submission", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: gateCookie, Value: "ok", Path: "/"})
	http.Redirect(w, r, r.URL.Query().Get("url"), http.StatusFound)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	if s.opts.Delay > 0 {
		select {
		case <-time.After(s.opts.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if _, err := r.Cookie(gateCookie); err != nil {
		if r.Method != http.MethodGet {
			http.Error(w, "session expired", http.StatusForbidden)
			return
		}
		s.write(w, gatePage())
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.write(w, s.fullPage(1))
	case http.MethodPost:
		s.handlePostback(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePostback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	current, ok := parseState(r.PostForm.Get("__VIEWSTATE"))
	if !ok || r.PostForm.Get("__PREVIOUSPAGE") == "" {
		http.Error(w, "invalid view state", http.StatusBadRequest)
		return
	}

	var page int
	switch {
	case r.PostForm.Get(fieldGoTo) != "":
		rank, err := strconv.Atoi(r.PostForm.Get(fieldRank))
		if err != nil || rank < 1 {
			http.Error(w, "invalid rank", http.StatusBadRequest)
			return
		}
		page = (rank-1)/s.opts.PageSize + 1
	case r.PostForm.Get("__EVENTTARGET") == targetNext:
		page = current + 1
	default:
		http.Error(w, "unknown postback", http.StatusBadRequest)
		return
	}

	if page > s.Pages() {
		page = s.Pages()
	}
	if page == s.opts.FailPage {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	s.write(w, s.deltaPage(page))
}

func (s *Server) write(w http.ResponseWriter, body string) {
	if s.opts.Latin1 {
		enc, err := charmap.ISO8859_1.NewEncoder().String(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte(enc))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func stateFor(page int) string {
	return "page-" + strconv.Itoa(page)
}

func parseState(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(v, "page-"))
	if err != nil || !strings.HasPrefix(v, "page-") {
		return 0, false
	}
	return n, true
}
