// Copyright 2023 the post2post authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

type parser interface {
	Flag(name, help string) *kingpin.FlagClause
}

func main() {
	rootParser := kingpin.CommandLine

	serverParser := rootParser.Command("server", "run the relay server")
	serverCmd := &serverCommand{}
	serverCmd.Bind(serverParser)

	healthParser := rootParser.Command("health", "check a running relay's health")
	healthCmd := &healthCommand{}
	healthCmd.Bind(healthParser)

	switch kingpin.Parse() {
	case "server":
		serverCmd.Run()
	case "health":
		healthCmd.Run()
	}
}
