// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ManifestParseFailedId Id = iota + 1
	BundlerConfigInvalidId
	DuplicateModuleId
	DependencyDepthExceededId
	DescriptorWriteFailedId
	ConfigLoadFailedId
	TypeCheckerNotFoundId
	TypeCheckerExitedId
)

type MarkdownMsg string

type Issue struct {
	id    Id          // ID used to lookup the issue
	mdMsg MarkdownMsg // Markdown text that will be rendered
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the guide with the given glamour style ("dark", "light",
// "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	manifestParseFailedIssue = &Issue{
		id: ManifestParseFailedId,
		mdMsg: `
# A module manifest could not be read!

Every directory under the UI root that holds a ` + "`package.json`" + ` is a module.
bleep reads its ` + "`scripts`" + ` and ` + "`dependencies`" + ` and stops when the file is not valid JSON.

## Things you can try:
- Validate the file:
~~~
$ node -e 'JSON.parse(require("fs").readFileSync("package.json"))'
~~~
- Remove trailing commas and comments, which JSON does not allow
- Make sure every script value is a string`,
	}

	bundlerConfigInvalidIssue = &Issue{
		id: BundlerConfigInvalidId,
		mdMsg: `
# A bundler configuration could not be understood!

bleep reads the object literal passed to ` + "`rollupProject({...})`" + ` in
` + "`rollup.config.mjs`" + `. It understands plain literals, identifiers and
function calls used as values, nothing more.

## Things you can try:
- Keep the call on its own statement: ` + "`export default rollupProject({ main: { input: 'src/main.ts', output: 'site' } });`" + `
- Move computed values (spreads, arrow functions, template interpolation) into
  named helpers and reference them by name
- Switch ` + "`bundle_policy`" + ` to ` + "`convention`" + ` in bleep.cue and delete the file`,
	}

	duplicateModuleIssue = &Issue{
		id: DuplicateModuleId,
		mdMsg: `
# Two modules share a name!

A module is named after its directory, so two directories with the same base
name anywhere under the UI root collide.

## Things you can try:
- Rename one of the directories
- Add one of them to ` + "`exclude`" + ` in bleep.cue:
~~~cue
exclude: ["old-site"]
~~~`,
	}

	dependencyDepthExceededIssue = &Issue{
		id: DependencyDepthExceededId,
		mdMsg: `
# A dependency chain is too deep!

Walking the ` + "`dependencies`" + ` of the modules went deeper than the configured
limit. This almost always means two manifests depend on each other.

## Things you can try:
- Look at the chain printed with the error and remove the back edge
- Inspect the graph:
~~~
$ bleep graph
~~~
- Raise ` + "`max_dependency_depth`" + ` in bleep.cue if the chain is genuinely that long`,
	}

	descriptorWriteFailedIssue = &Issue{
		id: DescriptorWriteFailedId,
		mdMsg: `
# Type-check descriptors could not be generated!

bleep rewrites every module's ` + "`tsconfig.json`" + ` with absolute paths into the
descriptor directory and wipes that directory first.

## Things you can try:
- Check that ` + "`descriptor_dir`" + ` is writable
- Check that each module's ` + "`tsconfig.json`" + ` is valid (comments are fine)`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load bleep.cue!

The configuration file exists but does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ bleep config show
~~~
- Check enum fields: ` + "`bundle_policy`" + ` is "config-file" or "convention",
  ` + "`hooks.runtime`" + ` is "native" or "virtual"
- Delete the file to fall back to defaults`,
	}

	typeCheckerNotFoundIssue = &Issue{
		id: TypeCheckerNotFoundId,
		mdMsg: `
# The type-checker could not be started!

bleep runs ` + "`tsc -b <aggregate> --incremental -w --preserveWatchOutput`" + ` and
waits for it to report a clean initial build.

## Things you can try:
- Install dependencies so that tsc is on PATH:
~~~
$ pnpm install
~~~
- Point ` + "`typecheck.command`" + ` in bleep.cue at the binary`,
	}

	typeCheckerExitedIssue = &Issue{
		id: TypeCheckerExitedId,
		mdMsg: `
# The type-checker exited before its first clean build!

Bundling only starts after the type-checker prints its success marker
(` + "`Found 0 errors.`" + ` by default).

## Things you can try:
- Read the tsc output above for the first error
- Run the build once by hand:
~~~
$ tsc -b ui/@build/bleep/.tsconfig/.bleep.tsconfig.json
~~~
- Adjust ` + "`typecheck.success_marker`" + ` if your tsc prints a different line`,
	}

	issues = map[Id]*Issue{
		manifestParseFailedIssue.Id():     manifestParseFailedIssue,
		bundlerConfigInvalidIssue.Id():    bundlerConfigInvalidIssue,
		duplicateModuleIssue.Id():         duplicateModuleIssue,
		dependencyDepthExceededIssue.Id(): dependencyDepthExceededIssue,
		descriptorWriteFailedIssue.Id():   descriptorWriteFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		typeCheckerNotFoundIssue.Id():     typeCheckerNotFoundIssue,
		typeCheckerExitedIssue.Id():       typeCheckerExitedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id - b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
