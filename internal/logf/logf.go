// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of the lightChain.
//
// The lightChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lightChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lightChain. If not, see <http://www.gnu.org/licenses/>.

// Package logf is a small leveled wrapper over the standard logger, giving
// the CLI a consistent "[LEVEL] " prefix without
// pulling in a structured logging dependency the rest of the corpus
// doesn't use either.
package logf

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// Infof logs an informational message.
func Infof(format string, args ...interface{}) {
	std.Printf("[INFO] "+format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	std.Printf("[WARN] "+format, args...)
}

// Errorf logs an error.
func Errorf(format string, args ...interface{}) {
	std.Printf("[ERROR] "+format, args...)
}
