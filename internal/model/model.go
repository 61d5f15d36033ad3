package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Match{},
	&Turn{},
	&Shot{},
	&Impact{},
	&MountEvent{},
	&StatusSample{},
}

// DatabaseModelsSQLite is the schema for the local SQLite file. It matches DatabaseModels;
// geometry columns are stored as WKB blobs.
var DatabaseModelsSQLite = []any{
	&Match{},
	&Turn{},
	&Shot{},
	&Impact{},
	&MountEvent{},
	&StatusSample{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// StatusSample is a periodic snapshot of match progress and command backlog.
type StatusSample struct {
	Time        time.Time `json:"time" gorm:"type:timestamptz;index:idx_status_time"`
	MatchID     uint      `json:"matchId" gorm:"index:idx_status_match_id"`
	Turn        uint      `json:"turn"`
	Phase       string    `json:"phase" gorm:"size:16"`
	Bodies      uint16    `json:"bodies"`
	Mounts      uint16    `json:"mounts"`
	Armed       uint16    `json:"armed"`
	Projectiles uint16    `json:"projectiles"`
	Pending     uint16    `json:"pending"`
}

func (*StatusSample) TableName() string {
	return "status_samples"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Match is one recorded game. Seed and Config reproduce its initial terrain.
type Match struct {
	gorm.Model
	Name        string         `json:"name" gorm:"size:200"`
	Seed        int64          `json:"seed"`
	PlanetCount int            `json:"planetCount"`
	Teams       int            `json:"teams"`
	StartTime   time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_match_start"`
	EndTime     *time.Time     `json:"endTime" gorm:"type:timestamptz"`
	Config      datatypes.JSON `json:"config" gorm:"type:jsonb;default:'{}'"`

	Turns       []Turn
	Shots       []Shot
	Impacts     []Impact
	MountEvents []MountEvent
}

func (*Match) TableName() string {
	return "matches"
}

// Turn is a phase transition.
type Turn struct {
	ID      uint      `json:"id" gorm:"primarykey;autoIncrement"`
	MatchID uint      `json:"matchId" gorm:"index:idx_turn_match_id"`
	Match   Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn    uint      `json:"turn"`
	Time    time.Time `json:"time" gorm:"type:timestamptz;NOT NULL"`
	From    string    `json:"from" gorm:"size:16"`
	To      string    `json:"to" gorm:"size:16"`
	Mounts  int       `json:"mounts"`
	// Alive maps team id to standing mount count.
	Alive datatypes.JSON `json:"alive" gorm:"type:jsonb;default:'{}'"`
}

func (*Turn) TableName() string {
	return "turns"
}

// Shot is a mount firing a projectile.
type Shot struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement"`
	MatchID   uint       `json:"matchId" gorm:"index:idx_shot_match_id"`
	Match     Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn      uint       `json:"turn" gorm:"index:idx_shot_turn"`
	Time      time.Time  `json:"time" gorm:"type:timestamptz;NOT NULL"`
	MountID   int        `json:"mountId"`
	Team      int        `json:"team"`
	Kind      string     `json:"kind" gorm:"size:32"`
	Origin    geom.Point `json:"origin"`
	VelocityX float64    `json:"velocityX"`
	VelocityY float64    `json:"velocityY"`
	AI        bool       `json:"ai" gorm:"default:false"`
}

func (*Shot) TableName() string {
	return "shots"
}

// Impact is a projectile resolving in the world. Regions holds the struck body's outer rings
// after the impact as a MultiPolygon.
type Impact struct {
	ID       uint          `json:"id" gorm:"primarykey;autoIncrement"`
	MatchID  uint          `json:"matchId" gorm:"index:idx_impact_match_id"`
	Match    Match         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn     uint          `json:"turn" gorm:"index:idx_impact_turn"`
	Time     time.Time     `json:"time" gorm:"type:timestamptz;NOT NULL"`
	BodyID   int           `json:"bodyId"`
	MountID  int           `json:"mountId"`
	Team     int           `json:"team"`
	Kind     string        `json:"kind" gorm:"size:32"`
	Position geom.Point    `json:"position"`
	Radius   float64       `json:"radius"`
	Regions  geom.Geometry `json:"-"`
}

func (*Impact) TableName() string {
	return "impacts"
}

// MountEvent is a mount lifecycle change.
type MountEvent struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement"`
	MatchID  uint       `json:"matchId" gorm:"index:idx_mount_event_match_id"`
	Match    Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Turn     uint       `json:"turn"`
	Time     time.Time  `json:"time" gorm:"type:timestamptz;NOT NULL"`
	MountID  int        `json:"mountId" gorm:"index:idx_mount_event_mount_id"`
	BodyID   int        `json:"bodyId"`
	Team     int        `json:"team"`
	Type     string     `json:"type" gorm:"size:16"`
	Position geom.Point `json:"position"`
	Health   float64    `json:"health"`
}

func (*MountEvent) TableName() string {
	return "mount_events"
}
