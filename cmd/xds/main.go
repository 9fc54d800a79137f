/*
Copyright © 2024 the XDS authors.
This file is part of XDS.

XDS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

XDS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with XDS.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command xds is a command-line interface for the XDS electron transport
// and light collection simulation.
package main

import (
	"fmt"
	"os"

	"github.com/xenoscope/xds/xdsutil"
)

func main() {
	if err := xdsutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
