package scriptengine

// Context is the sandbox triple every module's host API is scoped to:
// a scratch temp folder, a module-private folder, and a persistent
// folder that survives across runs. ExtProcessAPI gates whether the
// process namespace (privileged) is installed at all.
type Context struct {
	TempFolder       string
	ModuleFolder     string
	PersistentFolder string
	ExtProcessAPI    bool
}
