// SPDX-License-Identifier: MPL-2.0

// Package bundlecfg reads the object literal handed to a project helper in a
// JavaScript bundler configuration, for example
//
//	export default rollupProject({
//	  main: { name: 'site', input: 'src/main.ts', output: 'site' },
//	  tv: { input: 'src/tv.ts', output: 'tv', plugins: [copy({ targets })] },
//	});
//
// The literal is never evaluated. It is read as SEN, so comments, single
// quotes, bare keys and trailing commas need no help. Identifiers become
// strings and calls become Call values, so the referenced helpers need not
// exist.
package bundlecfg
