package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentstudio/internal/api"
	"contentstudio/internal/crypto"
	"contentstudio/internal/database"
	"contentstudio/internal/models"
	"contentstudio/internal/services/experiments"
	"contentstudio/internal/services/generation"
	"contentstudio/internal/services/library"
	"contentstudio/internal/services/scheduler"
)

// setupStudio wires a studio against an in-memory database. A single
// pool connection keeps the database visible to watcher goroutines.
func setupStudio(t *testing.T) (*Studio, *gorm.DB) {
	t.Helper()

	t.Setenv("ENCRYPTION_KEY", "studio-test-key")
	t.Setenv("CONTENTSTUDIO_CONFIG_DIR", t.TempDir())
	require.NoError(t, crypto.InitEncryption())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	database.DB = db

	s := newStudio(context.Background(), db)
	require.NoError(t, s.wire())

	t.Cleanup(func() {
		if s.schedulerService != nil {
			s.schedulerService.Stop()
		}
		s.cancel()
		if s.crewWatcher != nil {
			_ = s.crewWatcher.Stop()
		}
	})

	return s, db
}

// fakeWorkspace runs a minimal content API: /me for connection tests,
// /generations answering with taskID, and a status endpoint serving
// the given snapshots in order (the last one repeats).
type fakeWorkspace struct {
	server *httptest.Server

	mu         sync.Mutex
	lastSubmit map[string]interface{}
	polls      int
}

func newFakeWorkspace(t *testing.T, taskID string, snapshots []string) *fakeWorkspace {
	t.Helper()
	fw := &fakeWorkspace{}

	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"Dana Writer","workspace":"acme-marketing"}`)
	})
	mux.HandleFunc("/generations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		fw.mu.Lock()
		fw.lastSubmit = body
		fw.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"task_id":%q}`, taskID)
	})
	mux.HandleFunc("/tasks/"+taskID+"/status", func(w http.ResponseWriter, r *http.Request) {
		fw.mu.Lock()
		idx := fw.polls
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		fw.polls++
		snapshot := snapshots[idx]
		fw.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, snapshot)
	})

	fw.server = httptest.NewServer(mux)
	t.Cleanup(fw.server.Close)
	return fw
}

func (fw *fakeWorkspace) submitField(key string) interface{} {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.lastSubmit == nil {
		return nil
	}
	return fw.lastSubmit[key]
}

// activateWorkspace saves a profile against the fake server and makes
// it the active workspace. Watchers poll fast so tests finish quickly.
func activateWorkspace(t *testing.T, s *Studio, fw *fakeWorkspace) *models.WorkspaceProfile {
	t.Helper()
	profile, err := s.CreateProfile(CreateProfileRequest{
		Name:     "test-workspace",
		APIURL:   fw.server.URL,
		APIToken: "token-123",
	})
	require.NoError(t, err)
	require.NotNil(t, s.ActiveProfile(), "First profile should activate automatically")
	s.generationService.SetChannelOptions(api.WithForcePolling(), api.WithPollInterval(25*time.Millisecond))
	return profile
}

func newCalendarEntry(name string) scheduler.UpsertJobRequest {
	return scheduler.UpsertJobRequest{
		Name:    name,
		JobType: "generation",
		Cron:    "0 9 * * 1",
		Enabled: true,
		Payload: map[string]interface{}{
			"content_type": "email",
			"topic":        "Weekly newsletter",
		},
	}
}

func experimentRequest(name string, draftIDs ...string) experiments.CreateExperimentRequest {
	return experiments.CreateExperimentRequest{Name: name, DraftIDs: draftIDs}
}

func metricsByName(experiment, variant string, impressions, conversions int64) experiments.MetricsUpdate {
	return experiments.MetricsUpdate{
		ExperimentID: experiment,
		VariantID:    variant,
		Impressions:  impressions,
		Conversions:  conversions,
	}
}

const studioCompletedSnap = `{"status":"completed","progress":100,"steps_completed":4,"total_steps":4,"result":{"title":"Launch Post","content":"Six words of launch post copy","content_type":"blog-post","quality_score":90}}`

func TestStudioWiring(t *testing.T) {
	t.Run("Should come up offline without an active profile", func(t *testing.T) {
		s, _ := setupStudio(t)

		assert.Nil(t, s.ActiveProfile())
		assert.NotNil(t, s.Catalog())
		assert.NotNil(t, s.Crew())
		assert.Equal(t, "default", s.Crew().Name, "Built-in crew should back an empty config dir")

		_, err := s.Generate(generation.GenerationRequest{ContentType: "blog-post", Topic: "Offline"})
		assert.ErrorIs(t, err, ErrNoWorkspace)

		_, err = s.Progress("task-1")
		assert.ErrorIs(t, err, ErrNoWorkspace)

		_, _, _, err = s.Watch("task-1")
		assert.ErrorIs(t, err, ErrNoWorkspace)

		assert.ErrorIs(t, s.Cancel("task-1"), ErrNoWorkspace)

		_, err = s.TaskSnapshot("task-1")
		assert.ErrorIs(t, err, ErrNoWorkspace)

		assert.Nil(t, s.ActiveGenerations())
	})

	t.Run("Should bind the active profile found at startup", func(t *testing.T) {
		s, db := setupStudio(t)
		fw := newFakeWorkspace(t, "task-wire-1", []string{studioCompletedSnap})

		tokenEnc, err := crypto.EncryptToken("startup-token")
		require.NoError(t, err)
		profile := models.WorkspaceProfile{
			Name:        "startup-workspace",
			APIURL:      fw.server.URL,
			APITokenEnc: tokenEnc,
			Active:      true,
		}
		require.NoError(t, db.Create(&profile).Error)

		// A fresh studio over the same database picks the profile up
		fresh := newStudio(context.Background(), db)
		require.NoError(t, fresh.wire())
		t.Cleanup(func() {
			fresh.schedulerService.Stop()
			fresh.cancel()
			if fresh.crewWatcher != nil {
				_ = fresh.crewWatcher.Stop()
			}
		})

		require.NotNil(t, fresh.ActiveProfile())
		assert.Equal(t, "startup-workspace", fresh.ActiveProfile().Name)

		// The bound client can reach the workspace
		snap, err := fresh.TaskSnapshot("task-wire-1")
		require.NoError(t, err)
		assert.Equal(t, 100, snap.Progress)

		_ = s // First studio only seeded the schema
	})

	t.Run("Should offer calendar CRUD while offline", func(t *testing.T) {
		s, _ := setupStudio(t)

		jobs, err := s.Jobs()
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("Should pick up an edited crew file without a restart", func(t *testing.T) {
		s, _ := setupStudio(t)
		require.Equal(t, "default", s.Crew().Name)

		crewYAML := `name: reloaded-crew
description: Swapped in while running
agents:
  - name: writer
    goal: Draft the content
`
		dir := os.Getenv("CONTENTSTUDIO_CONFIG_DIR")
		path := filepath.Join(dir, "crew.yaml")
		require.NoError(t, os.WriteFile(path, []byte(crewYAML), 0o644))

		assert.Eventually(t, func() bool {
			return s.Crew().Name == "reloaded-crew"
		}, 3*time.Second, 25*time.Millisecond, "Crew should reload after the file is written")
	})
}

func TestConfigDir(t *testing.T) {
	t.Run("Should honor the environment override", func(t *testing.T) {
		t.Setenv("CONTENTSTUDIO_CONFIG_DIR", "/tmp/studio-conf")

		dir, err := ConfigDir()

		require.NoError(t, err)
		assert.Equal(t, "/tmp/studio-conf", dir)
	})

	t.Run("Should fall back to the user config directory", func(t *testing.T) {
		t.Setenv("CONTENTSTUDIO_CONFIG_DIR", "")

		dir, err := ConfigDir()

		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(dir, "contentstudio"), "Got %s", dir)
	})
}

func TestStudioGenerate(t *testing.T) {
	t.Run("Should submit and track through the facade", func(t *testing.T) {
		s, db := setupStudio(t)
		fw := newFakeWorkspace(t, "task-studio-1", []string{studioCompletedSnap})
		activateWorkspace(t, s, fw)

		taskID, err := s.Generate(generation.GenerationRequest{
			ContentType: "blog-post",
			Topic:       "Product launch recap",
		})
		require.NoError(t, err)
		assert.Equal(t, "task-studio-1", taskID)

		require.Eventually(t, func() bool {
			var record models.GenerationRecord
			if err := db.Where("task_id = ?", taskID).First(&record).Error; err != nil {
				return false
			}
			return record.Status == "completed"
		}, 5*time.Second, 25*time.Millisecond)

		prog, err := s.Progress(taskID)
		require.NoError(t, err)
		assert.Equal(t, "completed", prog.Status)
		require.NotNil(t, prog.Result)
		assert.Equal(t, "Launch Post", prog.Result.Title)

		active := s.ActiveGenerations()
		require.Len(t, active, 1)
		assert.Equal(t, taskID, active[0].TaskID)
	})

	t.Run("Should fill the brand from the profile default", func(t *testing.T) {
		s, _ := setupStudio(t)
		fw := newFakeWorkspace(t, "task-studio-2", []string{studioCompletedSnap})

		brand, err := s.CreateBrand(CreateBrandRequest{Name: "Acme", Industry: "technology"})
		require.NoError(t, err)

		_, err = s.CreateProfile(CreateProfileRequest{
			Name:           "branded-workspace",
			APIURL:         fw.server.URL,
			APIToken:       "token-123",
			DefaultBrandID: brand.ID,
		})
		require.NoError(t, err)

		_, err = s.Generate(generation.GenerationRequest{
			ContentType: "social-post",
			Topic:       "Feature teaser",
		})
		require.NoError(t, err)

		assert.Equal(t, brand.ID, fw.submitField("brand_id"))
	})

	t.Run("Should watch a task through the facade", func(t *testing.T) {
		s, _ := setupStudio(t)
		runningSnap := `{"status":"running","progress":30,"steps_completed":1,"total_steps":4,"current_step":"Generating draft"}`
		fw := newFakeWorkspace(t, "task-studio-3", []string{runningSnap, studioCompletedSnap})
		activateWorkspace(t, s, fw)

		taskID, err := s.Generate(generation.GenerationRequest{
			ContentType: "email",
			Topic:       "Release notes digest",
		})
		require.NoError(t, err)

		prog, events, unsubscribe, err := s.Watch(taskID)
		require.NoError(t, err)
		defer unsubscribe()
		assert.Equal(t, taskID, prog.TaskID)

		deadline := time.After(5 * time.Second)
		for {
			select {
			case ev := <-events:
				if ev.Status == "completed" {
					assert.Equal(t, 100, ev.Progress)
					return
				}
			case <-deadline:
				t.Fatal("Timed out waiting for completion through the facade")
			}
		}
	})
}

func TestStudioCalendar(t *testing.T) {
	t.Run("Should remove and toggle jobs by name", func(t *testing.T) {
		s, db := setupStudio(t)

		jobID, err := s.UpsertJob(newCalendarEntry("weekly-newsletter"))
		require.NoError(t, err)

		require.NoError(t, s.SetJobEnabled("weekly-newsletter", false))
		var job models.ScheduledJob
		require.NoError(t, db.First(&job, "id = ?", jobID).Error)
		assert.False(t, job.Enabled)

		require.NoError(t, s.RemoveJob("weekly-newsletter"))
		var count int64
		db.Model(&models.ScheduledJob{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Should report unknown jobs", func(t *testing.T) {
		s, _ := setupStudio(t)

		err := s.RemoveJob("no-such-job")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduled job not found")
	})
}

func TestStudioExperiments(t *testing.T) {
	t.Run("Should resolve experiments by name", func(t *testing.T) {
		s, db := setupStudio(t)

		a := models.Draft{Title: "Headline A", Body: "a", ContentType: "blog-post"}
		b := models.Draft{Title: "Headline B", Body: "b", ContentType: "blog-post"}
		require.NoError(t, db.Create(&a).Error)
		require.NoError(t, db.Create(&b).Error)

		experiment, err := s.CreateExperiment(experimentRequest("headline-test", a.ID, b.ID))
		require.NoError(t, err)

		report, err := s.ExperimentReport("headline-test")
		require.NoError(t, err)
		assert.Equal(t, experiment.ID, report.ExperimentID)
		assert.Len(t, report.Variants, 2)

		_, err = s.RecordMetrics(metricsByName("headline-test", "A", 100, 10))
		require.NoError(t, err)

		out, err := s.ExportExperiment("headline-test", "csv")
		require.NoError(t, err)
		assert.Contains(t, out, "label,variant_id")

		summaries, err := s.Experiments()
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "headline-test", summaries[0].Name)
	})

	t.Run("Should report unknown experiments", func(t *testing.T) {
		s, _ := setupStudio(t)

		_, err := s.ExperimentReport("no-such-experiment")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "experiment not found")
	})
}

func TestStudioLibrary(t *testing.T) {
	t.Run("Should serve history and drafts", func(t *testing.T) {
		s, db := setupStudio(t)

		record := models.GenerationRecord{TaskID: "task-lib-1", ContentType: "blog-post", Topic: "History entry", Status: "completed", Progress: 100}
		require.NoError(t, db.Create(&record).Error)
		draft := models.Draft{Title: "Library draft", Body: "text", ContentType: "blog-post"}
		require.NoError(t, db.Create(&draft).Error)

		history, err := s.History(library.HistoryFilter{})
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "task-lib-1", history[0].TaskID)

		drafts, err := s.Drafts(library.DraftFilter{})
		require.NoError(t, err)
		require.Len(t, drafts, 1)

		loaded, err := s.Draft(draft.ID)
		require.NoError(t, err)
		assert.Equal(t, "Library draft", loaded.Title)

		out, err := s.ExportDraft(draft.ID, "markdown")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "# Library draft"))

		require.NoError(t, s.DeleteDraft(draft.ID))
		_, err = s.Draft(draft.ID)
		assert.Error(t, err)
	})
}
