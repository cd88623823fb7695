package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/pipeline"
)

type fixedGeocoder struct{ address string }

func (g *fixedGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	return g.address, nil
}

type fixedDemographics struct{ record *domain.DemographicsRecord }

func (d *fixedDemographics) Nearest(_ context.Context, _, _ float64) (*domain.DemographicsRecord, error) {
	return d.record, nil
}

type fixedScorer struct{ score float64 }

func (s *fixedScorer) Predict(_ context.Context, _ []float64) (float64, error) {
	return s.score, nil
}

func TestProcess_EnrichesAndScores(t *testing.T) {
	event := domain.DisasterEvent{
		EventID:   "usgs_abc",
		EventType: "earthquake",
		Latitude:  37.4,
		Longitude: -122.1,
		Severity:  domain.SeverityHigh,
		EventTime: "2023-11-14T22:13:20Z",
		Source:    "USGS",
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)

	p := pipeline.NewProcessor(
		&fixedGeocoder{address: "1 Main St, Palo Alto, CA"},
		&fixedDemographics{record: &domain.DemographicsRecord{PopulationDensity: 1234.5}},
		&fixedScorer{score: 0.82},
		discardLogger(),
	)

	got, err := p.Process(context.Background(), domain.RawEvent{Value: value})
	require.NoError(t, err)

	require.NotNil(t, got.Address)
	assert.Equal(t, "1 Main St, Palo Alto, CA", *got.Address)
	require.NotNil(t, got.PopulationDensity)
	assert.Equal(t, 1234.5, *got.PopulationDensity)
	assert.Equal(t, 0.82, got.ImpactScore)
	assert.Equal(t, "2023-11-14 22:13:20 UTC", got.EventTime)
}

func TestProcess_DecodeFailureIsError(t *testing.T) {
	p := pipeline.NewProcessor(nil, nil, nil, discardLogger())
	_, err := p.Process(context.Background(), domain.RawEvent{Value: []byte("{broken")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process message")
}

func TestProcess_NilCollaboratorsDegradeGracefully(t *testing.T) {
	event := domain.DisasterEvent{
		EventID:   "nasa_EONET_123",
		EventType: "wildfire",
		Latitude:  34.0,
		Longitude: -118.2,
		Severity:  domain.SeverityMedium,
		EventTime: "2024-04-26T15:10:00Z",
		Source:    "NASA",
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)

	p := pipeline.NewProcessor(nil, nil, nil, discardLogger())
	got, err := p.Process(context.Background(), domain.RawEvent{Value: value})
	require.NoError(t, err)

	assert.Nil(t, got.Address)
	assert.Nil(t, got.PopulationDensity)
	assert.Equal(t, domain.DefaultImpactScore, got.ImpactScore)
}
