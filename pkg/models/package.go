package models

import "time"

// PackageStatus is the install state of a requested package.
type PackageStatus string

const (
	PackagePending     PackageStatus = "pending"
	PackageInstalled   PackageStatus = "installed"
	PackageRejected    PackageStatus = "rejected"
	PackageUninstalled PackageStatus = "uninstalled"
)

// PackageRequest represents a software package someone asked to have installed.
type PackageRequest struct {
	ID              int64         `json:"id" db:"id"`
	PackageName     string        `json:"package_name" db:"package_name"`
	AddedBy         string        `json:"added_by" db:"added_by"`
	AddedAt         time.Time     `json:"added_at" db:"added_at"`
	Status          PackageStatus `json:"status" db:"status"`
	StatusNote      *string       `json:"status_note" db:"status_note"`
	StatusUpdatedBy *string       `json:"status_updated_by" db:"status_updated_by"`
	StatusUpdatedAt *time.Time    `json:"status_updated_at" db:"status_updated_at"`
}

// CreatePackageRequest is the body of POST /api/packages.
type CreatePackageRequest struct {
	PackageName string `json:"package_name" validate:"required,package_name"`
}

// UpdatePackageStatusRequest is the body of PATCH /api/packages/{id}/status.
type UpdatePackageStatusRequest struct {
	Status     PackageStatus `json:"status" validate:"required,oneof=pending installed rejected uninstalled"`
	StatusNote *string       `json:"status_note"`
}

// PackageStatusUpdate is a status transition applied by an admin.
type PackageStatusUpdate struct {
	Status    PackageStatus
	Note      *string
	UpdatedBy string
}
