package export

import (
	"context"
	"fmt"
	"time"

	"xai-bench/internal/config"
	"xai-bench/internal/logging"
	"xai-bench/internal/search"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const trialMeasurement = "xai_trial"

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.InfluxConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		client.Close()
		return nil, err
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": msg,
		}).Error("InfluxDB health check failed")
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

// WriteTrials writes one point per trial.
func (idb *InfluxDBClient) WriteTrials(ctx context.Context, meta RunMeta, trials []search.Trial) error {
	points := TrialPoints(meta, trials)
	if len(points) == 0 {
		return nil
	}
	if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write trials to InfluxDB: %w", err)
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"bucket": idb.bucket,
		"points": len(points),
	}).Info("Wrote trials to InfluxDB")
	return nil
}

// TrialPoints builds the points of trials. Point times are offset from the
// run start by the trial index so that trials never overwrite each other.
func TrialPoints(meta RunMeta, trials []search.Trial) []*write.Point {
	points := make([]*write.Point, 0, len(trials))
	for _, t := range trials {
		fields := map[string]interface{}{
			"trial":            t.Index,
			"aggregated_score": t.Aggregated,
			"duration_ms":      t.Duration.Milliseconds(),
		}
		for p, v := range t.Scores {
			fields["score_"+p.String()] = v
		}
		for k, v := range t.Config.Map() {
			fields["param_"+k] = v
		}

		points = append(points, influxdb2.NewPoint(trialMeasurement,
			map[string]string{
				"run":       meta.Name,
				"explainer": meta.Explainer,
				"strategy":  string(t.Strategy),
				"checksum":  meta.Checksum,
				"session":   meta.Session,
			},
			fields,
			meta.Started.Add(time.Duration(t.Index)*time.Millisecond),
		))
	}
	return points
}

func (idb *InfluxDBClient) Close() {
	if idb.client != nil {
		idb.client.Close()
	}
}
