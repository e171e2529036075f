package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Scan      ScanDeps
	Elevation ElevationDeps
	Link      LinkDeps
	Lifecycle LifecycleDeps
	Settings  SettingsDeps
	Login     LoginDeps
}
