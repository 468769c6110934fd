package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gorilla/mux"
	"github.com/jsphweid/tactus/db"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/playback"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/timeline"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves a score over HTTP",
	Long:  `Serves a score over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			panic("Need 1 arg: <score>")
		}
		serve(args[0])
	},
}

// server owns one score. Edits take the lock; reads of derived state go
// through the repeat list's lazy rebuild.
type server struct {
	mu      sync.Mutex
	tl      *timeline.Timeline
	tm      repeats.TempoMap
	list    *repeats.List
	loop    *repeats.Loop
	pm      *playback.Model
	meta    model.ScoreMetadata
	rebuild func(f func())
}

func newServer(tl *timeline.Timeline, tm repeats.TempoMap, meta model.ScoreMetadata) *server {
	list := repeats.New(tl)
	s := &server{
		tl:      tl,
		tm:      tm,
		list:    list,
		loop:    repeats.NewLoop(list),
		pm:      playback.NewModel(tl, list),
		meta:    meta,
		rebuild: debounce.New(100 * time.Millisecond),
	}
	return s
}

// afterEdit invalidates derived state. The rebuild is debounced so an
// edit burst pays the expansion cost once.
func (s *server) afterEdit() {
	s.list.MarkDirty()
	s.rebuild(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.list.Segments()
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}

func queryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}

func beatResponse(mb model.MeasureBeat) model.BeatResponse {
	return model.BeatResponse{
		MeasureIndex:    mb.MeasureIndex,
		BeatIndex:       mb.BeatIndex,
		Beat:            mb.Beat,
		MaxMeasureIndex: mb.MaxMeasureIndex,
		MaxBeatIndex:    mb.MaxBeatIndex,
	}
}

func (s *server) handleBeat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	json.NewEncoder(w).Encode(beatResponse(s.tl.Beat(queryInt64(r, "tick"))))
}

func (s *server) handleTime(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	utick := queryInt64(r, "utick")
	json.NewEncoder(w).Encode(model.TimeResponse{
		RawTick:    s.list.Utick2Tick(utick),
		PlayedTick: utick,
		Seconds:    s.list.UtickToSecs(utick, s.tm),
	})
}

func (s *server) handleTracks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]model.TrackResponse, 0)
	for _, tr := range s.pm.Tracks() {
		res = append(res, model.TrackResponse{ID: tr.ID, VoiceIndex: tr.VoiceIndex})
	}
	json.NewEncoder(w).Encode(res)
}

func (s *server) handleTrackEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	if _, ok := s.pm.TrackByID(id); !ok {
		writeError(w, 404, "no such track: "+id)
		return
	}
	res := make([]model.EventResponse, 0)
	for _, ev := range s.pm.ResolveTrackEvents(id) {
		res = append(res, model.EventResponse{
			Pitch:    ev.Pitch,
			Velocity: ev.Velocity,
			OnTick:   ev.OnUtick,
			OffTick:  ev.OffUtick,
		})
	}
	json.NewEncoder(w).Encode(res)
}

func (s *server) loopResponse() model.LoopResponse {
	b := s.loop.Boundaries()
	return model.LoopResponse{InTick: b.InTick, OutTick: b.OutTick, Enabled: b.Enabled}
}

func (s *server) handleLoop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	json.NewEncoder(w).Encode(s.loopResponse())
}

func readBody(w http.ResponseWriter, r *http.Request, into any) bool {
	reqBody, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, 400, "could not read request body")
		return false
	}
	if err := json.Unmarshal(reqBody, into); err != nil {
		writeError(w, 400, "could not unmarshal request body: "+err.Error())
		return false
	}
	return true
}

func (s *server) handleLoopIn(w http.ResponseWriter, r *http.Request) {
	var input model.LoopRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.AddLoopIn(input.Tick)
	json.NewEncoder(w).Encode(s.loopResponse())
}

func (s *server) handleLoopOut(w http.ResponseWriter, r *http.Request) {
	var input model.LoopRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.AddLoopOut(input.Tick)
	json.NewEncoder(w).Encode(s.loopResponse())
}

func (s *server) handleLoopEnabled(w http.ResponseWriter, r *http.Request) {
	var input model.LoopEnabledRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.SetEnabled(input.Enabled)
	json.NewEncoder(w).Encode(s.loopResponse())
}

func (s *server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var input model.SplitRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tl.SplitMeasure(frac.FromTicks(input.Tick)); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	s.afterEdit()
	json.NewEncoder(w).Encode(beatResponse(s.tl.Beat(input.Tick)))
}

func (s *server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var input model.InsertRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tl.InsertMeasure(input.AfterIndex, frac.FromTicks(input.LengthTicks)); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	s.afterEdit()
	json.NewEncoder(w).Encode(beatResponse(s.tl.Beat(0)))
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var input model.DeleteRequestBody
	if !readBody(w, r, &input) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tl.DeleteMeasure(input.Index); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	s.afterEdit()
	json.NewEncoder(w).Encode(beatResponse(s.tl.Beat(0)))
}

func (s *server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	metas, err := db.GetScoreMetadatas([]string{file})
	if err != nil {
		// metadata store being down shouldn't break playback clients
		fmt.Printf("Could not fetch metadata: %v\n", err)
		json.NewEncoder(w).Encode(model.ScoreMetadata{})
		return
	}
	json.NewEncoder(w).Encode(metas[file])
}

func (s *server) router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/beat", s.handleBeat).Methods("GET")
	router.HandleFunc("/time", s.handleTime).Methods("GET")
	router.HandleFunc("/tracks", s.handleTracks).Methods("GET")
	router.HandleFunc("/tracks/{id}/events", s.handleTrackEvents).Methods("GET")
	router.HandleFunc("/loop", s.handleLoop).Methods("GET")
	router.HandleFunc("/loop/in", s.handleLoopIn).Methods("POST")
	router.HandleFunc("/loop/out", s.handleLoopOut).Methods("POST")
	router.HandleFunc("/loop/enabled", s.handleLoopEnabled).Methods("POST")
	router.HandleFunc("/edit/split", s.handleSplit).Methods("POST")
	router.HandleFunc("/edit/insert", s.handleInsert).Methods("POST")
	router.HandleFunc("/edit/delete", s.handleDelete).Methods("POST")
	router.HandleFunc("/metadata", s.handleMetadata).Methods("GET")
	return router
}

func serve(path string) {
	tl, tm, meta := loadScore(path)
	s := newServer(tl, tm, meta)
	handler := cors.Default().Handler(s.router())
	log.Fatal(http.ListenAndServe(":8080", handler))
}
