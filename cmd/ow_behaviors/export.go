package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/database"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/geo"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
)

// runExport writes one gzipped JSON run archive per session ID from the
// Postgres backend, in the same shape the in-memory backend exports.
func runExport(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no session IDs provided")
	}

	db, err := openStandaloneDB()
	if err != nil {
		return err
	}

	fmt.Println("Getting JSON for session IDs: ", args)

	for _, sessionID := range args {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var sess model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&sess).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		run := make(map[string]any)
		run["extensionVersion"] = sess.ExtensionVersion
		run["sessionName"] = sess.SessionName
		run["simHost"] = sess.SimHost
		run["tag"] = sess.Tag

		site := model.Site{}
		err = db.Model(&model.Site{}).Where("id = ?", sess.SiteID).First(&site).Error
		if err != nil {
			return fmt.Errorf("error getting site: %w", err)
		}
		run["siteName"] = site.SiteName
		run["body"] = site.Body
		run["gravity"] = site.Gravity

		terrainEvents := []model.TerrainEvent{}
		err = db.Model(&model.TerrainEvent{}).
			Where("session_id = ?", sessionIDInt).
			Order("tick ASC").
			Find(&terrainEvents).Error
		if err != nil {
			return fmt.Errorf("error getting terrain events: %w", err)
		}
		terrainOut := []map[string]any{}
		for _, e := range terrainEvents {
			pos, _ := geo.PositionFromPoint(e.Position)
			terrainOut = append(terrainOut, map[string]any{
				"time":        e.Time,
				"tick":        e.Tick,
				"operation":   e.Operation,
				"volumeDelta": e.VolumeDelta,
				"center":      pos,
			})
		}
		run["terrainEvents"] = terrainOut

		spawns := []model.RegolithSpawn{}
		err = db.Model(&model.RegolithSpawn{}).
			Where("session_id = ?", sessionIDInt).
			Order("tick ASC").
			Find(&spawns).Error
		if err != nil {
			return fmt.Errorf("error getting regolith spawns: %w", err)
		}
		spawnsOut := []map[string]any{}
		for _, s := range spawns {
			pos, _ := geo.PositionFromPoint(s.Position)
			spawnsOut = append(spawnsOut, map[string]any{
				"time":           s.Time,
				"tick":           s.Tick,
				"modelUri":       s.ModelURI,
				"instanceName":   s.InstanceName,
				"position":       pos,
				"direction":      s.Direction,
				"forceMagnitude": s.ForceMagnitude,
				"spawned":        s.Spawned,
				"pushed":         s.Pushed,
			})
		}
		run["regolithSpawns"] = spawnsOut

		transitions := []model.FaultTransition{}
		err = db.Model(&model.FaultTransition{}).
			Where("session_id = ?", sessionIDInt).
			Order("tick ASC").
			Find(&transitions).Error
		if err != nil {
			return fmt.Errorf("error getting fault transitions: %w", err)
		}
		transitionsOut := []map[string]any{}
		for _, t := range transitions {
			transitionsOut = append(transitionsOut, map[string]any{
				"time":      t.Time,
				"tick":      t.Tick,
				"jointName": t.JointName,
				"faultKey":  t.FaultKey,
				"activated": t.Activated,
				"friction":  t.Friction,
			})
		}
		run["faultTransitions"] = transitionsOut

		contacts := []model.GroundContact{}
		err = db.Model(&model.GroundContact{}).
			Where("session_id = ?", sessionIDInt).
			Order("time ASC").
			Find(&contacts).Error
		if err != nil {
			return fmt.Errorf("error getting ground contacts: %w", err)
		}
		contactsOut := []map[string]any{}
		for _, c := range contacts {
			pos, _ := geo.PositionFromPoint(c.Position)
			contactsOut = append(contactsOut, map[string]any{
				"time":     c.Time,
				"position": pos,
			})
		}
		run["groundContacts"] = contactsOut

		events := []model.SessionEvent{}
		err = db.Model(&model.SessionEvent{}).
			Where("session_id = ?", sessionIDInt).
			Order("tick ASC").
			Find(&events).Error
		if err != nil {
			return fmt.Errorf("error getting session events: %w", err)
		}
		eventsOut := []map[string]any{}
		for _, e := range events {
			var extra any
			if err := json.Unmarshal([]byte(e.ExtraData), &extra); err != nil {
				extra = map[string]any{}
			}
			eventsOut = append(eventsOut, map[string]any{
				"time":      e.Time,
				"tick":      e.Tick,
				"name":      e.Name,
				"message":   e.Message,
				"extraData": extra,
			})
		}
		run["sessionEvents"] = eventsOut

		// Compute endTick from the maximum tick across the recorded streams
		var endTick uint64
		db.Model(&model.TerrainEvent{}).Where("session_id = ?", sessionIDInt).
			Select("COALESCE(MAX(tick), 0)").Scan(&endTick)
		var faultEndTick uint64
		db.Model(&model.FaultTransition{}).Where("session_id = ?", sessionIDInt).
			Select("COALESCE(MAX(tick), 0)").Scan(&faultEndTick)
		if faultEndTick > endTick {
			endTick = faultEndTick
		}
		run["endTick"] = endTick

		fmt.Println("Got session data in ", time.Since(txStart))

		runJSON, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", sess.SessionName, sess.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}
		defer func() { _ = f.Close() }()

		gzWriter := gzip.NewWriter(f)
		defer func() { _ = gzWriter.Close() }()
		_, err = gzWriter.Write(runJSON)
		if err != nil {
			return fmt.Errorf("error writing to gzip: %w", err)
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}

// runReduce thins dense ground-contact rows down to every fifth tick, then
// vacuums to recover space. Long digging runs accumulate contacts far faster
// than the review frontend can usefully display them.
func runReduce(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no session IDs provided")
	}

	db, err := openStandaloneDB()
	if err != nil {
		return err
	}

	for _, sessionID := range args {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var sess model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&sess).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		var toDelete int64
		err = db.Model(&model.BehaviorPerformance{}).Where(
			"session_id = ? AND tick % 5 != 0",
			sess.ID,
		).Count(&toDelete).Error
		if err != nil {
			return fmt.Errorf("error counting performance rows to delete: %w", err)
		}

		if toDelete == 0 {
			fmt.Println("No performance rows to delete for sessionId ", sessionID, ", checked in ", time.Since(txStart))
			continue
		}

		err = db.Where(
			"session_id = ? AND tick % 5 != 0",
			sess.ID,
		).Delete(&model.BehaviorPerformance{}).Error
		if err != nil {
			return fmt.Errorf("error deleting performance rows: %w", err)
		}

		fmt.Println("Deleted ", toDelete, " performance rows from sessionId ", sessionID, " in ", time.Since(txStart))
	}

	fmt.Println("Finished reducing, running VACUUM to recover space...")
	txStart := time.Now()
	tables := []string{}
	err = db.Raw(
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`,
	).Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("error getting tables to vacuum: %w", err)
	}

	for _, table := range tables {
		err = db.Exec(fmt.Sprintf(`VACUUM (FULL) "%s"`, table)).Error
		if err != nil {
			return fmt.Errorf("error running VACUUM on table %s: %w", table, err)
		}
	}

	fmt.Println("Finished VACUUM in ", time.Since(txStart))
	return nil
}

func openStandaloneDB() (*gorm.DB, error) {
	// Defaults are set even when no config file is present
	_ = config.Load(".")

	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}
