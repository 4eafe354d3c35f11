// Package gatt provides the declarative model for a BLE GATT peripheral.
//
// Applications declare typed characteristics and group them into services:
//   - Characteristic values are typed through a Codec and stored as raw bytes
//   - Permissions are inferred from characteristic properties unless supplied
//   - Notifying characteristics carry a client characteristic configuration descriptor
//   - Local writes (SetValue) fire the change hook, remote writes (SetData) do not
//
// Registration with an attribute server lives in the peripheral package.
package gatt
