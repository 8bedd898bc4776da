// Package model implements the module framework of an instrument: modules
// with declared, persisted setup attributes, a setup/callback lifecycle and
// exclusive ownership of shared hardware modules.
//
// # Module Types
//
// A ModuleType is declared once at package level. Attributes are bound to it
// with Register, and the ordered list of setup attributes is fixed with
// SetSetupAttributes:
//
//	var PIDType = model.NewModuleType("pid", nil)
//
//	var (
//		attrP = PIDType.MustRegister("p", &model.Descriptor{Doc: "proportional gain", Type: model.DataTypeFloat})
//		attrI = PIDType.MustRegister("i", &model.Descriptor{Doc: "integral gain", Type: model.DataTypeFloat})
//	)
//
//	func init() { PIDType.MustSetSetupAttributes("p", "i") }
//
// Subtypes see their ancestors' attributes first, in declaration order. A
// type is sealed when its first module is constructed; declarations after
// that fail with ErrTypeSealed.
//
// # Lifecycle
//
// Every Module runs the same state machine:
//
//	Constructing -> Idle -> InSetup -> Idle ...
//
// Construction runs the Init hook with autosave off and then loads the
// persisted setup attributes from the module's config branch. Setup applies
// overrides with callbacks suppressed and then runs the Setup hook. A direct
// write of a callback attribute outside setup runs the Callback hook, which
// by default re-runs Setup.
//
// # Persistence
//
// Setup attributes are persisted below the parent's branch:
//
//	modules/<type>s/<instance>/<attribute>
//	modules/<type>s/<instance>/states/<state>/<attribute>
//
// # Ownership
//
// A module has at most one owner. Acquire records the owner and disables
// autosave; releasing the Lease restores autosave and re-applies the
// persisted values. Acquisition is last-writer-wins and never blocks.
//
// # Concurrency
//
// Each Module serializes its operations with one mutex. Hooks run while that
// mutex is held and must use the *Attrs they are given instead of the
// Module's own methods. Change events are delivered to observers after the
// mutex is released, in the order they were raised.
package model
