package nlu

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/model"
)

func TestBayesUntrained(t *testing.T) {
	b := NewBayesModel()
	assert.False(t, b.Trained())
	assert.Nil(t, b.Predict("where is my drill"))

	intent, conf := b.Top("where is my drill")
	assert.Equal(t, model.IntentUnknown, intent)
	assert.Equal(t, 0.0, conf)
}

func TestBayesPredictDistribution(t *testing.T) {
	b := NewBayesModel()
	b.Train([]Example{
		{"where is my drill", model.IntentSearch},
		{"where are my boots", model.IntentSearch},
		{"find the tent", model.IntentSearch},
		{"how many tools do i have", model.IntentCount},
		{"how many items are there", model.IntentCount},
	})

	dist := b.Predict("where is the hammer")
	require.NotNil(t, dist)

	sum := 0.0
	for _, p := range dist {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, dist[model.IntentSearch], dist[model.IntentCount])

	intent, conf := b.Top("how many boots do i have")
	assert.Equal(t, model.IntentCount, intent)
	assert.Greater(t, conf, 0.5)
}

func TestBayesTrainingIsCumulative(t *testing.T) {
	b := NewBayesModel()
	b.Train([]Example{{"where is my drill", model.IntentSearch}})
	assert.Equal(t, 1, b.TotalDocs)

	b.Train([]Example{{"how many tools", model.IntentCount}})
	assert.Equal(t, 2, b.TotalDocs)
	assert.Len(t, b.Classes, 2)
}

func TestBayesSkipsInvalidLabels(t *testing.T) {
	b := NewBayesModel()
	b.Train([]Example{
		{"some text", model.IntentUnknown},
		{"other text", model.Intent("nonsense")},
	})
	assert.False(t, b.Trained())
}

func TestBayesSurvivesPersistence(t *testing.T) {
	b := NewBayesModel()
	b.Train([]Example{
		{"where is my drill", model.IntentSearch},
		{"where are my boots", model.IntentSearch},
		{"how many tools do i have", model.IntentCount},
	})

	blob, err := json.Marshal(b)
	require.NoError(t, err)

	restored := NewBayesModel()
	require.NoError(t, json.Unmarshal(blob, restored))
	restored.rebuildVocab()

	text := "where is the wrench"
	wantIntent, wantConf := b.Top(text)
	gotIntent, gotConf := restored.Top(text)
	assert.Equal(t, wantIntent, gotIntent)
	assert.False(t, math.IsNaN(gotConf))
	assert.InDelta(t, wantConf, gotConf, 1e-9)
}
