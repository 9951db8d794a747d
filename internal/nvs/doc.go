// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nvs provides the persistent blob store used by the parameter controller.
//
// The store mirrors a flash NVS partition: it is initialized (and erased when its
// layout is unusable), opened per namespace, and written through handles whose
// writes only become durable on Commit.
//
// # Key Types
//
//   - Flash: a partition that can be initialized, erased and opened
//   - Handle: an open namespace with GetBlob/SetBlob/Commit/Close
//   - SQLiteFlash: partition backed by a SQLite database
//   - FileFlash: partition backed by a single JSON image written atomically
//   - MemFlash: in-memory partition for tests and ephemeral hosts
//
// # Usage
//
//	flash := nvs.NewSQLiteFlash("/var/lib/device/params.db")
//	if err := flash.Init(); nvs.NeedsErase(err) {
//	    _ = flash.Erase()
//	    err = flash.Init()
//	}
//
//	h, err := flash.Open("param_storage")
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	_ = h.SetBlob("Brightness", []byte{0x40})
//	err = h.Commit()
//
// Keys and namespace names are limited to MaxKeyLen bytes, matching the
// 15 character limit of ESP-IDF NVS.
package nvs
