// Package docs carries the swaggo general-info annotations for the ZFS
// storage control plane. Regenerating the full swagger.json/doc.go pair
// (swag init) is out of scope as a build artifact; the doc-comment
// convention above each handler and here is carried for texture, grounded
// on the sibling agent's daemon/docs/swagger.go.
package docs

// General API Info
//
//	@title						ZFS Agent API
//	@version					1.0.0
//	@description				Local HTTP control plane for managing a ZFS storage subsystem: pools, vdevs, datasets, snapshots, scrubs, and replication.
//	@description				Every mutating request requires the X-API-Key header; the key is generated on first run and persisted alongside the process's config.
//
//	@license.name				MIT
//
//	@host						localhost:9876
//	@schemes					http
//
//	@tag.name					Safety
//	@tag.description			Safety lock status and override
//	@tag.name					Pools
//	@tag.description			Pool lifecycle: list, create, destroy, import, export, vdev add/remove
//	@tag.name					Datasets
//	@tag.description			Filesystem/volume lifecycle, properties, promote, receive
//	@tag.name					Snapshots
//	@tag.description			Snapshot lifecycle, clone, rollback
//	@tag.name					Scrub
//	@tag.description			Scrub/resilver control and parsed scan statistics
//	@tag.name					Replication
//	@tag.description			Send-to-file, receive-from-file, and direct replication, all task-mediated
//	@tag.name					Tasks
//	@tag.description			Long-running task polling and the raw command-execution escape hatch
//	@tag.name					Metrics
//	@tag.description			Prometheus metrics scrape endpoint
