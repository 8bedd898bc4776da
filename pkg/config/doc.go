// Package config provides the hierarchical key-value store that modules
// persist their setup attributes to.
//
// A store is a tree of branches. Each branch maps string keys either to a
// scalar value or to a nested branch. Branches are created on first access,
// so resolving a module's section is idempotent:
//
//	root := store.Root()
//	pids, _ := root.Branch("pids")
//	pid0, _ := pids.Branch("pid0")
//	_ = pid0.Set("p", 0.5)
//
// Tree keeps everything in memory. FileStore backs a Tree with a YAML file
// and writes it back after every change; Watcher reloads a FileStore when
// the file is edited by someone else.
package config
