package zfsengine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zfs-agent/zfs-agent/internal/shell"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine/nvlist"
)

// shellEngine implements every Engine operation by running the zfs/zpool
// binaries; the cgo engine delegates to it for each operation it does not
// call the library for. Grounded on
// the sibling agent's daemon/services/collectors/zfs.go parsing style and
// daemon/lib/shell.go's ExecCommand* helpers.
type shellEngine struct {
	zfsBin   string
	zpoolBin string
}

func newShellEngine(zfsBin, zpoolBin string) *shellEngine {
	if zfsBin == "" {
		zfsBin = "zfs"
	}
	if zpoolBin == "" {
		zpoolBin = "zpool"
	}
	return &shellEngine{zfsBin: zfsBin, zpoolBin: zpoolBin}
}

// NewShellEngine exposes a pure-subprocess Engine, used in environments
// without the cgo toolchain or libzfs headers available.
func NewShellEngine(zfsBin, zpoolBin string) Engine {
	return newShellEngine(zfsBin, zpoolBin)
}

func (e *shellEngine) ListPools(ctx context.Context) ([]Pool, error) {
	lines, err := shell.ExecCommand(e.zpoolBin, "list", "-H", "-p", "-o", "name,health,size,alloc,free,capacity")
	if err != nil {
		return nil, zfserr.Wrap(zfserr.EngineError, err, "zpool list failed")
	}
	var pools []Pool
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			continue
		}
		size, _ := strconv.ParseUint(fields[2], 10, 64)
		alloc, _ := strconv.ParseUint(fields[3], 10, 64)
		free, _ := strconv.ParseUint(fields[4], 10, 64)
		capPct, _ := strconv.ParseFloat(strings.TrimSuffix(fields[5], "%"), 64)
		pools = append(pools, Pool{
			Name:       fields[0],
			Health:     PoolHealth(fields[1]),
			Size:       size,
			Allocated:  alloc,
			Free:       free,
			CapPercent: capPct,
		})
	}
	return pools, nil
}

func (e *shellEngine) GetPool(ctx context.Context, name string) (Pool, error) {
	pools, err := e.ListPools(ctx)
	if err != nil {
		return Pool{}, err
	}
	for _, p := range pools {
		if p.Name == name {
			return p, nil
		}
	}
	return Pool{}, zfserr.New(zfserr.NotFound, "pool %q not found", name)
}

func (e *shellEngine) CreatePool(ctx context.Context, name string, vdevSpec map[string]any) error {
	vdevArgs, err := flattenVdevArgs(vdevSpec)
	if err != nil {
		return err
	}
	args := append([]string{"create", name}, vdevArgs...)
	if _, err := shell.ExecCommandOutput(e.zpoolBin, args...); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool create failed")
	}
	return nil
}

func (e *shellEngine) DestroyPool(ctx context.Context, name string, force bool) error {
	args := []string{"destroy"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	if _, err := shell.ExecCommandOutput(e.zpoolBin, args...); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool destroy failed")
	}
	return nil
}

func (e *shellEngine) ImportPool(ctx context.Context, searchPath, explicitName string) (string, error) {
	args := []string{"import"}
	if searchPath != "" {
		args = append(args, "-d", searchPath)
	}
	if explicitName != "" {
		args = append(args, explicitName)
	} else {
		args = append(args, "-a")
	}
	out, err := shell.ExecCommandOutput(e.zpoolBin, args...)
	if err != nil {
		return "", zfserr.Wrap(zfserr.SubprocessError, err, "zpool import failed")
	}
	return explicitName, nilIfEmpty(out)
}

func nilIfEmpty(string) error { return nil }

func (e *shellEngine) ExportPool(ctx context.Context, name string, force bool) error {
	args := []string{"export"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	if _, err := shell.ExecCommandOutput(e.zpoolBin, args...); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool export failed")
	}
	return nil
}

// AddVdev issues `zpool add`. force is accepted for parity with the Engine
// interface but intentionally not passed through to the subprocess call
// (see DESIGN.md Open Questions).
func (e *shellEngine) AddVdev(ctx context.Context, pool string, vdevSpec map[string]any, force bool) error {
	vdevArgs, err := flattenVdevArgs(vdevSpec)
	if err != nil {
		return err
	}
	args := append([]string{"add", pool}, vdevArgs...)
	if _, err := shell.ExecCommandOutput(e.zpoolBin, args...); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool add failed")
	}
	return nil
}

func (e *shellEngine) RemoveVdev(ctx context.Context, pool, device string) error {
	if _, err := shell.ExecCommandOutput(e.zpoolBin, "remove", pool, device); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool remove failed")
	}
	return nil
}

func (e *shellEngine) ListDatasets(ctx context.Context, pool string) ([]Dataset, error) {
	lines, err := shell.ExecCommand(e.zfsBin, "list", "-H", "-r", "-t", "filesystem,volume", "-o", "name,type", pool)
	if err != nil {
		return nil, zfserr.Wrap(zfserr.EngineError, err, "zfs list failed")
	}
	var datasets []Dataset
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		kind := KindFilesystem
		if fields[1] == "volume" {
			kind = KindVolume
		}
		datasets = append(datasets, Dataset{Name: fields[0], Kind: kind})
	}
	return datasets, nil
}

func (e *shellEngine) CreateDataset(ctx context.Context, name string, kind DatasetKind) error {
	args := []string{"create"}
	if kind == KindVolume {
		return zfserr.New(zfserr.Validation, "volume creation requires an explicit -V size, not supported via this shell path")
	}
	args = append(args, name)
	if _, err := shell.ExecCommandOutput(e.zfsBin, args...); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs create failed")
	}
	return nil
}

func (e *shellEngine) DestroyDataset(ctx context.Context, name string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "destroy", name); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs destroy failed")
	}
	return nil
}

func (e *shellEngine) GetProperties(ctx context.Context, name string) (map[string]string, error) {
	lines, err := shell.ExecCommand(e.zfsBin, "get", "-H", "-o", "property,value", "all", name)
	if err != nil {
		return nil, zfserr.Wrap(zfserr.EngineError, err, "zfs get failed")
	}
	props := make(map[string]string, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		props[fields[0]] = fields[1]
	}
	return props, nil
}

func (e *shellEngine) SetProperty(ctx context.Context, name, key, value string) error {
	arg := fmt.Sprintf("%s=%s", key, value)
	if _, err := shell.ExecCommandOutput(e.zfsBin, "set", arg, name); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs set failed")
	}
	return nil
}

func (e *shellEngine) ListSnapshots(ctx context.Context, dataset string) ([]Snapshot, error) {
	lines, err := shell.ExecCommand(e.zfsBin, "list", "-H", "-t", "snapshot", "-o", "name", "-r", dataset)
	if err != nil {
		return nil, zfserr.Wrap(zfserr.EngineError, err, "zfs list -t snapshot failed")
	}
	var snaps []Snapshot
	for _, line := range lines {
		i := strings.IndexByte(line, '@')
		if i < 0 {
			continue
		}
		snaps = append(snaps, Snapshot{Dataset: line[:i], Name: line[i+1:]})
	}
	return snaps, nil
}

func (e *shellEngine) CreateSnapshot(ctx context.Context, dataset, name string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "snapshot", dataset+"@"+name); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs snapshot failed")
	}
	return nil
}

func (e *shellEngine) DestroySnapshot(ctx context.Context, dataset, name string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "destroy", dataset+"@"+name); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs destroy failed")
	}
	return nil
}

func (e *shellEngine) CloneSnapshot(ctx context.Context, dataset, snapshot, target string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "clone", dataset+"@"+snapshot, target); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs clone failed")
	}
	return nil
}

func (e *shellEngine) PromoteDataset(ctx context.Context, name string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "promote", name); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs promote failed")
	}
	return nil
}

func (e *shellEngine) RollbackTo(ctx context.Context, dataset, snapshot string) error {
	if _, err := shell.ExecCommandOutput(e.zfsBin, "rollback", dataset+"@"+snapshot); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zfs rollback failed")
	}
	return nil
}

func (e *shellEngine) UserProperty(ctx context.Context, dataset, key string) (string, error) {
	props, err := e.GetProperties(ctx, dataset)
	if err != nil {
		return "", err
	}
	return props[key], nil
}

func (e *shellEngine) StartScrub(ctx context.Context, pool string) error {
	if _, err := shell.ExecCommandOutput(e.zpoolBin, "scrub", pool); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool scrub failed")
	}
	return nil
}

func (e *shellEngine) PauseScrub(ctx context.Context, pool string) error {
	if _, err := shell.ExecCommandOutput(e.zpoolBin, "scrub", "-p", pool); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool scrub -p failed")
	}
	return nil
}

func (e *shellEngine) StopScrub(ctx context.Context, pool string) error {
	if _, err := shell.ExecCommandOutput(e.zpoolBin, "scrub", "-s", pool); err != nil {
		return zfserr.Wrap(zfserr.SubprocessError, err, "zpool scrub -s failed")
	}
	return nil
}

func (e *shellEngine) ScanStats(ctx context.Context, pool string) (ScanStatsRaw, error) {
	// The shell-only engine has no attribute-list access; it reports
	// absence rather than attempting to scrape `zpool status` free text,
	// since spec.md §4.7's exact index map requires the real nvlist.
	return ScanStatsRaw{Present: false}, nil
}

func (e *shellEngine) EstimateSendSize(ctx context.Context, snapshot Snapshot, incrementalBase string, flags SendFlags) (int64, error) {
	return e.DryRunSendSize(ctx, snapshot, incrementalBase, flags)
}

func (e *shellEngine) DryRunSendSize(ctx context.Context, snapshot Snapshot, incrementalBase string, flags SendFlags) (int64, error) {
	args := []string{"send", "-n", "-P", "-e"}
	if flags.LargeBlocks {
		args = append(args, "-L")
	}
	if flags.Compressed {
		args = append(args, "-c")
	}
	if flags.Raw {
		args = append(args, "-w")
	}
	if incrementalBase != "" {
		args = append(args, "-i", qualifyIncremental(snapshot.Dataset, incrementalBase))
	}
	args = append(args, snapshot.FullName())

	lines, err := shell.ExecCommand(e.zfsBin, args...)
	if err != nil {
		return 0, zfserr.Wrap(zfserr.SubprocessError, err, "zfs send -n -P failed")
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "size" {
			n, perr := strconv.ParseInt(fields[1], 10, 64)
			if perr == nil {
				return n, nil
			}
		}
	}
	return 0, zfserr.New(zfserr.EngineError, "no size line found in dry-run send output")
}

func (e *shellEngine) Execute(ctx context.Context, command string, args []string) (string, int, error) {
	out, err := shell.ExecCommandOutput(command, args...)
	if err != nil {
		return out, 1, nil // exit_code is reported in the envelope, not as a Go error (spec.md §6 POST /execute)
	}
	return out, 0, nil
}

// qualifyIncremental normalizes an incremental base to "dataset@name",
// qualifying with the source dataset when "@" is absent (spec.md §4.3).
func qualifyIncremental(dataset, base string) string {
	if strings.Contains(base, "@") {
		return base
	}
	return dataset + "@" + base
}

// flattenVdevArgs renders a vdev spec map into zpool CLI positional
// arguments for the create/add code paths. It routes the raw spec through
// nvlist.BuildFromSpec first, so the shell path enforces the same §4.6
// minimum-device-count, parity, aux-wrapper, and device-path invariants as
// the library path, rather than passing the caller's JSON straight through
// to zpool unchecked.
func flattenVdevArgs(spec map[string]any) ([]string, error) {
	if spec == nil {
		return nil, nil
	}
	_, vdevType, devices, err := nvlist.BuildFromSpec(spec)
	if err != nil {
		return nil, err
	}

	var args []string
	switch vdevType {
	case "mirror", "raidz", "raidz1", "raidz2", "raidz3", "log", "cache", "spare", "special", "dedup":
		args = append(args, vdevType)
	}
	args = append(args, devices...)
	return args, nil
}
