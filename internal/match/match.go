// Package match wires terrain, physics, search and the turn machine into a playable match.
package match

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/OCAP2/artillery/internal/ballistics"
	"github.com/OCAP2/artillery/internal/gravity"
	"github.com/OCAP2/artillery/internal/mount"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/internal/search"
	"github.com/OCAP2/artillery/internal/session"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/internal/turn"
	"github.com/OCAP2/artillery/pkg/core"
)

// Projectile is a shot in flight in the live world.
type Projectile struct {
	ID      int
	Handle  physics.Handle
	Kind    Kind
	Team    core.TeamID
	MountID int
	// Age is the flight time in seconds.
	Age float64
	AI  bool
}

// Dependencies are the collaborators injected into a Match. Zero values fall back to no-ops.
type Dependencies struct {
	Logger   *slog.Logger
	Effects  Effects
	Recorder storage.Backend
	Session  *session.Context
	Clock    func() time.Time
}

// Match is one game from layout to win condition. It is not safe for concurrent use.
type Match struct {
	cfg      Config
	logger   *slog.Logger
	effects  Effects
	recorder storage.Backend
	session  *session.Context
	clock    func() time.Time

	info    core.MatchInfo
	engine  *physics.Engine
	live    *physics.World
	sim     *ballistics.Simulator
	planner *search.Planner
	turns   *turn.Manager
	field   *gravity.Field
	kinds   map[string]Kind
	ai      map[core.TeamID]bool
	fx      *rng.Rand

	bodies      []*terrain.Body
	mounts      map[int]*mount.Mount
	handles     map[int]physics.Handle
	projectiles map[int]*Projectile
	dirty       map[int]bool

	nextMount      int
	nextProjectile int
	stepSize       time.Duration
	accumulator    time.Duration
	over           bool
	ended          bool
	winner         core.TeamID
}

// New lays out the match from cfg, records its start and plans the first AI turn.
func New(cfg Config, deps Dependencies) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Effects == nil {
		deps.Effects = NopEffects{}
	}
	if deps.Recorder == nil {
		deps.Recorder = storage.Nop{}
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	m := &Match{
		cfg:         cfg,
		logger:      deps.Logger,
		effects:     deps.Effects,
		recorder:    deps.Recorder,
		session:     deps.Session,
		clock:       deps.Clock,
		kinds:       make(map[string]Kind, len(cfg.Kinds)),
		ai:          make(map[core.TeamID]bool, len(cfg.AITeams)),
		mounts:      make(map[int]*mount.Mount),
		handles:     make(map[int]physics.Handle),
		projectiles: make(map[int]*Projectile),
		dirty:       make(map[int]bool),
		stepSize:    time.Duration(cfg.Physics.TimeStep * float64(time.Second)),
	}
	for _, k := range cfg.Kinds {
		m.kinds[k.Name] = k
	}
	for _, t := range cfg.AITeams {
		m.ai[t] = true
	}

	m.engine = physics.NewEngine(cfg.Physics)
	m.engine.Init()
	live, err := m.engine.Live()
	if err != nil {
		return nil, err
	}
	m.live = live

	master := rng.New(cfg.Seed)
	layoutRng := master.Fork()
	aiRng := master.Fork()
	m.fx = master.Fork()

	planets, err := layout(cfg, layoutRng)
	if err != nil {
		return nil, err
	}
	for i, p := range planets {
		b := terrain.New(i+1, p.center, p.seed, p.radius, cfg.Terrain, terrain.WithLogger(m.logger))
		b.Team = p.team
		m.bodies = append(m.bodies, b)
		m.registerCollider(b)
		m.dirty[b.ID] = true
	}
	m.refreshGravity()

	m.sim = ballistics.NewSimulator(m.engine, cfg.Gravity, cfg.Ballistics)
	searcher, err := search.NewSearcher(cfg.Search, aiRng)
	if err != nil {
		return nil, fmt.Errorf("create searcher: %w", err)
	}
	m.planner = search.NewPlanner(m.sim, searcher, aiRng)

	m.turns = turn.New(cfg.Turn, turn.WithLogger(m.logger))
	m.turns.OnTransition(m.onTransition)

	m.info = core.MatchInfo{
		Name:        cfg.Name,
		Seed:        cfg.Seed,
		PlanetCount: len(m.bodies),
		Teams:       cfg.Teams,
		StartTime:   m.clock(),
		Config:      cfg.Snapshot(),
	}
	m.info.Config["terrainHashes"] = m.TerrainHashes()
	if err := m.recorder.StartMatch(&m.info); err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	m.session.SetMatch(&m.info)
	m.session.SetTurn(m.turns.Turn(), m.turns.Phase().String())

	for _, b := range m.bodies {
		if !b.Team.Valid() {
			continue
		}
		for _, angle := range mountAngles(cfg.MountsPerPlanet, layoutRng) {
			m.spawnMount(b, angle, b.Team)
		}
	}

	m.logger.Info("Match created",
		"name", cfg.Name,
		"seed", cfg.Seed,
		"planets", len(m.bodies),
		"mounts", len(m.mounts))

	m.planAI()
	return m, nil
}

// Info returns the recorded match metadata.
func (m *Match) Info() core.MatchInfo { return m.info }

// Config returns the match configuration.
func (m *Match) Config() Config { return m.cfg }

// Phase returns the current turn phase.
func (m *Match) Phase() turn.Phase { return m.turns.Phase() }

// Turn returns the current turn number.
func (m *Match) Turn() uint { return m.turns.Turn() }

// Over reports whether the win condition was reached.
func (m *Match) Over() bool { return m.over }

// Winner returns the winning team once the match is over. ok is false for a draw or while the
// match is running.
func (m *Match) Winner() (core.TeamID, bool) {
	return m.winner, m.over && m.winner.Valid()
}

// Bodies returns the terrain bodies, destroyed ones included, ordered by id.
func (m *Match) Bodies() []*terrain.Body {
	return slices.Clone(m.bodies)
}

// Mounts returns the living mounts ordered by id.
func (m *Match) Mounts() []*mount.Mount {
	out := make([]*mount.Mount, 0, len(m.mounts))
	for _, mt := range m.mounts {
		out = append(out, mt)
	}
	slices.SortFunc(out, func(a, b *mount.Mount) int { return a.ID - b.ID })
	return out
}

// Projectiles returns the projectiles in flight ordered by id.
func (m *Match) Projectiles() []*Projectile {
	out := make([]*Projectile, 0, len(m.projectiles))
	for _, p := range m.projectiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Projectile) int { return a.ID - b.ID })
	return out
}

// ProjectilePosition returns where a projectile currently is.
func (m *Match) ProjectilePosition(p *Projectile) core.Vec2 {
	return m.live.Position(p.Handle)
}

// Kinds returns the projectile table.
func (m *Match) Kinds() []Kind { return slices.Clone(m.cfg.Kinds) }

// AliveByTeam counts living mounts per team.
func (m *Match) AliveByTeam() map[core.TeamID]int {
	out := make(map[core.TeamID]int, m.cfg.Teams)
	for _, mt := range m.mounts {
		out[mt.Team]++
	}
	return out
}

// TerrainHashes returns one hex digest per body of its current region set.
func (m *Match) TerrainHashes() []string {
	out := make([]string, len(m.bodies))
	for i, b := range m.bodies {
		out[i] = fmt.Sprintf("%016x", b.Regions().Hash())
	}
	return out
}

// Close ends the recording if the match did not finish on its own.
func (m *Match) Close() error {
	return m.finish()
}

func (m *Match) finish() error {
	if m.ended {
		return nil
	}
	m.ended = true
	if err := m.recorder.EndMatch(); err != nil {
		return fmt.Errorf("end match: %w", err)
	}
	return nil
}

// CommitTurn starts the Execution phase.
func (m *Match) CommitTurn() error {
	if m.over {
		return ErrMatchOver
	}
	if !m.turns.CommitTurn() {
		return fmt.Errorf("commit in %s: %w", m.turns.Phase(), ErrWrongPhase)
	}
	return nil
}

// Arm queues a shot for the next Execution phase. Speeds above the search maximum are clamped.
func (m *Match) Arm(mountID int, velocity core.Vec2, kind string) error {
	if err := m.planning(); err != nil {
		return err
	}
	mt, err := m.mount(mountID)
	if err != nil {
		return err
	}
	k, ok := m.kinds[kind]
	if !ok {
		return fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	if k.Cost > mt.AP {
		return fmt.Errorf("mount %d needs %d, has %d: %w", mt.ID, k.Cost, mt.AP, mount.ErrInsufficientAP)
	}
	return mt.Arm(m.clampSpeed(velocity), kind)
}

func (m *Match) clampSpeed(velocity core.Vec2) core.Vec2 {
	if limit := m.cfg.Search.MaxSpeed; limit > 0 && velocity.Len() > limit {
		return velocity.Normalize().Scale(limit)
	}
	return velocity
}

// Preview flies a hypothetical shot from a mount through a shadow world and returns every
// every-th position of its path, for aim trails. The live world is not touched.
func (m *Match) Preview(mountID int, velocity core.Vec2, every int) ([]core.Vec2, ballistics.Result, error) {
	mt, err := m.mount(mountID)
	if err != nil {
		return nil, ballistics.Result{}, err
	}
	batch, err := m.sim.NewBatch(m.bodies)
	if err != nil {
		return nil, ballistics.Result{}, err
	}
	defer batch.Release()

	muzzle := mt.Muzzle()
	return batch.Trace(ballistics.Shot{
		Origin:   muzzle,
		Velocity: m.clampSpeed(velocity),
		Team:     mt.Team,
		Target:   muzzle,
		// No target: the trail runs until it strikes terrain, leaves the world or times out.
		TargetRadius: math.Inf(-1),
	}, every)
}

// Disarm clears a queued shot.
func (m *Match) Disarm(mountID int) error {
	if err := m.planning(); err != nil {
		return err
	}
	mt, err := m.mount(mountID)
	if err != nil {
		return err
	}
	mt.Disarm()
	return nil
}

// ActionPoints returns a mount's current action points.
func (m *Match) ActionPoints(mountID int) (int, error) {
	mt, err := m.mount(mountID)
	if err != nil {
		return 0, err
	}
	return mt.AP, nil
}

// Armed returns a mount's queued shot.
func (m *Match) Armed(mountID int) (mount.Armed, bool) {
	mt, ok := m.mounts[mountID]
	if !ok {
		return mount.Armed{}, false
	}
	return mt.Armed()
}

func (m *Match) planning() error {
	if m.over {
		return ErrMatchOver
	}
	if p := m.turns.Phase(); p != turn.Planning {
		return fmt.Errorf("input in %s: %w", p, ErrWrongPhase)
	}
	return nil
}

func (m *Match) mount(id int) (*mount.Mount, error) {
	mt, ok := m.mounts[id]
	if !ok {
		return nil, fmt.Errorf("mount %d: %w", id, ErrUnknownMount)
	}
	return mt, nil
}

func (m *Match) body(id int) *terrain.Body {
	if id < 1 || id > len(m.bodies) {
		return nil
	}
	return m.bodies[id-1]
}

func (m *Match) registerCollider(b *terrain.Body) {
	tag := physics.TerrainTag(b.ID)
	if b.Destroyed() {
		m.live.RemoveCollider(tag)
		return
	}
	m.live.SetCollider(physics.Collider{
		Tag:       tag,
		Center:    b.Center,
		Bound:     b.BoundingRadius(),
		Triangles: b.Collider(),
	})
}

func (m *Match) refreshGravity() {
	m.field = gravity.NewField(m.cfg.Gravity, gravity.Sources(m.bodies))
}

// spawnMount places a new mount on b's surface along angle.
func (m *Match) spawnMount(b *terrain.Body, angle float64, team core.TeamID) (*mount.Mount, bool) {
	surface, ok := b.SurfacePoint(angle)
	if !ok {
		m.logger.Debug("No surface for mount", "body", b.ID, "angle", angle)
		return nil, false
	}
	m.nextMount++
	pos := surface.Add(core.FromAngle(angle, m.cfg.Mount.Radius))
	mt := mount.New(m.nextMount, b.ID, team, pos, angle, m.cfg.Mount)
	h := m.live.AddCircle(physics.MountTag(mt.ID), pos, core.Vec2{}, mt.Radius(), 1, true)
	m.live.SetRotation(h, mt.Rotation)
	b.Attach(mt)
	m.mounts[mt.ID] = mt
	m.handles[mt.ID] = h
	m.recordMount(mt, core.MountSpawned)
	return mt, true
}

func (m *Match) spawnProjectile(mountID int, team core.TeamID, k Kind, origin, velocity core.Vec2) *Projectile {
	m.nextProjectile++
	bc := m.cfg.Ballistics
	p := &Projectile{
		ID:      m.nextProjectile,
		Handle:  m.live.AddCircle(physics.ProjectileTag(m.nextProjectile), origin, velocity, bc.ProjectileRadius, bc.ProjectileMass, false),
		Kind:    k,
		Team:    team,
		MountID: mountID,
		AI:      m.ai[team],
	}
	m.projectiles[p.ID] = p
	return p
}

func (m *Match) removeProjectile(p *Projectile) {
	m.live.Remove(p.Handle)
	delete(m.projectiles, p.ID)
}

func (m *Match) onTransition(from, to turn.Phase) {
	m.session.SetTurn(m.turns.Turn(), to.String())
	m.recordTurn(from, to)
	switch to {
	case turn.Execution:
		m.accumulator = 0
		m.fire()
	case turn.Resolution:
		m.checkWin()
	case turn.Planning:
		m.beginPlanning()
	}
}

// fire launches every armed mount.
func (m *Match) fire() {
	for _, mt := range m.Mounts() {
		a, ok := mt.Armed()
		if !ok {
			continue
		}
		mt.Disarm()
		k, ok := m.kinds[a.Kind]
		if !ok {
			m.logger.Warn("Armed with unknown kind", "mount", mt.ID, "kind", a.Kind)
			continue
		}
		if err := mt.Spend(k.Cost); err != nil {
			m.logger.Debug("Shot dropped", "mount", mt.ID, "error", err)
			continue
		}
		origin := mt.Muzzle()
		p := m.spawnProjectile(mt.ID, mt.Team, k, origin, a.Velocity)
		m.effects.ProjectileFired(mt.ID, origin, a.Velocity, k.Name)

		e := core.ShotEvent{
			Turn:     m.turns.Turn(),
			Time:     m.clock(),
			MountID:  mt.ID,
			Team:     mt.Team,
			Kind:     k.Name,
			Origin:   origin,
			Velocity: a.Velocity,
			AI:       p.AI,
		}
		if err := m.recorder.RecordShot(&e); err != nil {
			m.logger.Error("Failed to record shot", "error", err)
		}
	}
}

func (m *Match) checkWin() {
	alive := m.AliveByTeam()
	standing := 0
	var last core.TeamID
	for t := 1; t <= m.cfg.Teams; t++ {
		if alive[core.TeamID(t)] > 0 {
			standing++
			last = core.TeamID(t)
		}
	}

	switch {
	case standing <= 1:
		m.over = true
		m.winner = last
	case m.cfg.MaxTurns > 0 && m.turns.Turn() >= m.cfg.MaxTurns:
		m.over = true
		m.winner = leader(alive, m.cfg.Teams)
	default:
		return
	}

	m.logger.Info("Match over", "turn", m.turns.Turn(), "winner", int(m.winner))
	if err := m.finish(); err != nil {
		m.logger.Error("Failed to end match", "error", err)
	}
}

// leader returns the team with strictly the most living mounts.
func leader(alive map[core.TeamID]int, teams int) core.TeamID {
	best, count, tie := core.NoTeam, 0, false
	for t := 1; t <= teams; t++ {
		n := alive[core.TeamID(t)]
		switch {
		case n > count:
			best, count, tie = core.TeamID(t), n, false
		case n == count && n > 0:
			tie = true
		}
	}
	if tie {
		return core.NoTeam
	}
	return best
}

func (m *Match) beginPlanning() {
	for _, p := range m.Projectiles() {
		m.removeProjectile(p)
	}
	for _, mt := range m.Mounts() {
		mt.Accrue()
	}
	if !m.over {
		m.planAI()
	}
}

// planAI arms every idle AI mount with the strongest explosive it can afford.
func (m *Match) planAI() {
	for _, mt := range m.Mounts() {
		if !m.ai[mt.Team] {
			continue
		}
		if _, armed := mt.Armed(); armed {
			continue
		}
		k, ok := m.aiKind(mt.AP)
		if !ok {
			continue
		}
		shooter := search.Shooter{
			MountID: mt.ID,
			Muzzle:  mt.Muzzle(),
			UpAngle: mt.UpAngle(),
			Team:    mt.Team,
		}
		plan, err := m.planner.Plan(shooter, m.targetsFor(mt), m.bodies)
		if err != nil {
			m.logger.Error("AI planning failed", "mount", mt.ID, "error", err)
			continue
		}
		if plan == nil {
			m.logger.Debug("No safe shot", "mount", mt.ID)
			continue
		}
		if err := mt.Arm(plan.Velocity(), k.Name); err != nil {
			m.logger.Debug("AI arm failed", "mount", mt.ID, "error", err)
			continue
		}
		m.logger.Debug("AI armed",
			"mount", mt.ID,
			"target", plan.TargetMountID,
			"kind", k.Name,
			"hit", plan.Solution.Hit,
			"closest", plan.Solution.ClosestDist)
	}
}

func (m *Match) aiKind(ap int) (Kind, bool) {
	var best Kind
	found := false
	for _, k := range m.cfg.Kinds {
		if k.Behavior != Explode || k.Cost > ap {
			continue
		}
		if !found || k.Damage > best.Damage {
			best, found = k, true
		}
	}
	return best, found
}

func (m *Match) targetsFor(shooter *mount.Mount) []search.Target {
	var out []search.Target
	muzzle := shooter.Muzzle()
	for _, o := range m.Mounts() {
		if o.Team == shooter.Team {
			continue
		}
		out = append(out, search.Target{
			MountID:  o.ID,
			BodyID:   o.BodyID,
			Position: o.Position,
			Radius:   o.Radius(),
			Priority: search.Priority(muzzle, o.Position, o.Health/o.MaxHealth),
		})
	}
	return out
}

// Snapshot returns the renderer view of the current frame. Terrain lists only bodies changed
// since the previous snapshot.
func (m *Match) Snapshot() core.Frame {
	f := core.Frame{
		Turn:  m.turns.Turn(),
		Phase: m.turns.Phase().String(),
	}
	for _, b := range m.bodies {
		if b.Destroyed() {
			continue
		}
		f.Bodies = append(f.Bodies, core.BodyState{X: b.Center.X, Y: b.Center.Y, Kind: physics.KindTerrain.String()})
	}
	for _, s := range m.live.Bodies() {
		f.Bodies = append(f.Bodies, core.BodyState{
			X:        s.Position.X,
			Y:        s.Position.Y,
			Rotation: s.Rotation,
			Kind:     s.Tag.Kind.String(),
		})
	}
	for _, b := range m.bodies {
		if !m.dirty[b.ID] {
			continue
		}
		f.Terrain = append(f.Terrain, core.TerrainState{BodyID: b.ID, Regions: b.FlatRegions()})
	}
	clear(m.dirty)
	return f
}

func (m *Match) recordTurn(from, to turn.Phase) {
	if m.ended {
		return
	}
	e := core.TurnEvent{
		Turn:   m.turns.Turn(),
		Time:   m.clock(),
		From:   from.String(),
		To:     to.String(),
		Mounts: len(m.mounts),
		Alive:  m.AliveByTeam(),
	}
	if err := m.recorder.RecordTurn(&e); err != nil {
		m.logger.Error("Failed to record turn", "error", err)
	}
}

func (m *Match) recordMount(mt *mount.Mount, typ core.MountEventType) {
	if m.ended {
		return
	}
	e := core.MountEvent{
		Turn:     m.turns.Turn(),
		Time:     m.clock(),
		MountID:  mt.ID,
		BodyID:   mt.BodyID,
		Team:     mt.Team,
		Type:     typ,
		Position: mt.Position,
		Health:   mt.Health,
	}
	if err := m.recorder.RecordMountEvent(&e); err != nil {
		m.logger.Error("Failed to record mount event", "error", err)
	}
}

func (m *Match) recordImpact(p *Projectile, bodyID, mountID int, pos core.Vec2) {
	if m.ended {
		return
	}
	e := core.ImpactEvent{
		Turn:     m.turns.Turn(),
		Time:     m.clock(),
		BodyID:   bodyID,
		MountID:  mountID,
		Team:     p.Team,
		Kind:     p.Kind.Name,
		Position: pos,
		Radius:   p.Kind.ExplosionRadius,
	}
	if b := m.body(bodyID); b != nil {
		e.Terrain = b.Regions().WKB()
	}
	if err := m.recorder.RecordImpact(&e); err != nil {
		m.logger.Error("Failed to record impact", "error", err)
	}
}
