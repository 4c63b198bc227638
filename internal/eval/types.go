package eval

// #region check
// Check captures a single invariant check result.
type Check struct {
	Name   string
	Pass   bool
	Detail string
}
// #endregion check

// #region result
// Result is the output of an invariant run over one snapshot.
type Result struct {
	Passed bool
	Checks []Check
	Reason string
}
// #endregion result
