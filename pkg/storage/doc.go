// Package storage manages the archive output directory.
//
// Media files are named after their snap ID and extension. The Manager
// indexes what is already on disk so reruns skip finished downloads, and
// every write goes through a temporary file plus rename so an interrupted
// run never leaves a truncated file under the final name.
//
//	manager, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting)
//	if !manager.IsDownloaded(record.FileName()) {
//	    err = manager.Save(body, record.FileName())
//	}
package storage
