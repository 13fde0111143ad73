package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Run is the persisted outcome of one parameter search.
type Run struct {
	VersionedRecord
	ID           string    `json:"id"`
	CreatedAtUTC time.Time `json:"created_at_utc"`
	Scenario     string    `json:"scenario"`
	Kernel       string    `json:"kernel"`
	Transfer     string    `json:"transfer"`
	Size         int       `json:"size"`
	Optimizer    string    `json:"optimizer"`
	Seed         int64     `json:"seed"`
	Epochs       int       `json:"epochs"`
	Swarm        int       `json:"swarm"`
	Workers      int       `json:"workers"`
	// BestParams is [dt_tau, h, Ae, ke, ki, si].
	BestParams  []float64 `json:"best_params"`
	BestFitness float64   `json:"best_fitness"`
	Evaluations int       `json:"evaluations"`
	GoalReached bool      `json:"goal_reached"`
}
