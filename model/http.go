package model

type BeatResponse struct {
	MeasureIndex    int     `json:"measure_index"`
	BeatIndex       int     `json:"beat_index"`
	Beat            float64 `json:"beat"`
	MaxMeasureIndex int     `json:"max_measure_index"`
	MaxBeatIndex    int     `json:"max_beat_index"`
}

type TimeResponse struct {
	RawTick    int64   `json:"raw_tick"`
	PlayedTick int64   `json:"played_tick"`
	Seconds    float64 `json:"seconds"`
}

type LoopResponse struct {
	InTick  int64 `json:"in_tick"`
	OutTick int64 `json:"out_tick"`
	Enabled bool  `json:"enabled"`
}

type LoopRequestBody struct {
	Tick int64 `json:"tick"`
}

type LoopEnabledRequestBody struct {
	Enabled bool `json:"enabled"`
}

type SplitRequestBody struct {
	Tick int64 `json:"tick"`
}

type InsertRequestBody struct {
	AfterIndex  int   `json:"after_index"`
	LengthTicks int64 `json:"length_ticks"`
}

type DeleteRequestBody struct {
	Index int `json:"index"`
}

type TrackResponse struct {
	ID         string `json:"id"`
	VoiceIndex int    `json:"voice_index"`
}

type EventResponse struct {
	Pitch    uint8 `json:"pitch"`
	Velocity uint8 `json:"velocity"`
	OnTick   int64 `json:"on_tick"`
	OffTick  int64 `json:"off_tick"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
