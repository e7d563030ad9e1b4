package model

import "github.com/cantina-labs/possync/localstore"

// Registry returns the full entity catalogue. Every table the store
// creates, listens on and pushes from is declared here; there is no
// dynamic registration at runtime.
func Registry() *localstore.Registry {
	return localstore.NewRegistry(
		ProductDescriptor,
		CategoryDescriptor,
		CustomerDescriptor,
		OrderDescriptor,
		BillingSettingsDescriptor,
		SectionTableDescriptor,
		BatchDescriptor,
		BoxCrateDescriptor,
		PrinterDescriptor,
		VoidCompDescriptor,
		CustomChargeDescriptor,
		AdsManagementDescriptor,
		AdsReportDescriptor,
		BusinessDetailsDescriptor,
		CashDrawerDescriptor,
	)
}
