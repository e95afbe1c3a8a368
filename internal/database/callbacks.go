package database

import (
	"time"

	"gorm.io/gorm"
)

// MetricsRecorder is an interface for recording database metrics
type MetricsRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
}

// RegisterMetricsCallbacks registers GORM callbacks for metrics collection
func RegisterMetricsCallbacks(db *gorm.DB, recorder MetricsRecorder) {
	db.Callback().Query().Before("gorm:query").Register("metrics:query_before", startTimer)
	db.Callback().Query().After("gorm:query").Register("metrics:query_after", recordFunc(recorder, "select"))

	db.Callback().Create().Before("gorm:create").Register("metrics:create_before", startTimer)
	db.Callback().Create().After("gorm:create").Register("metrics:create_after", recordFunc(recorder, "insert"))

	db.Callback().Update().Before("gorm:update").Register("metrics:update_before", startTimer)
	db.Callback().Update().After("gorm:update").Register("metrics:update_after", recordFunc(recorder, "update"))
}

func startTimer(db *gorm.DB) {
	db.InstanceSet("query_start_time", time.Now())
}

func recordFunc(recorder MetricsRecorder, operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startTime, ok := db.InstanceGet("query_start_time")
		if !ok {
			return
		}
		duration := time.Since(startTime.(time.Time))
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		recorder.RecordDBQuery(operation, table, duration, db.Error)
	}
}
