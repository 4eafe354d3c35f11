// Package peripheral binds declared gatt services to an attribute server.
//
// A Binder registers each service atomically, records the handle the server assigned to
// every characteristic and keeps both sides in sync:
//   - local writes (Characteristic.SetValue) are pushed to the server
//   - remote writes delivered through DidWrite are applied to the characteristic
//     without echoing them back
//
// The attribute server itself (handle allocation, ATT, connections) is external; see the
// goble subpackage for the go-ble implementation.
package peripheral
