package sqldb

import (
	"context"

	"synapse-service/internal/models"
)

type PackageTable struct {
	table
}

func NewPackageTable(client *SQLClient) *PackageTable {
	return &PackageTable{table{client: client, name: "package", pk: "package_id",
		columns: []string{"package_name", "package_description", "package_price", "package_active"}}}
}

func (t *PackageTable) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	var p models.Package
	if err := t.getByID(ctx, &p, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *PackageTable) FetchAll(ctx context.Context) ([]models.Package, error) {
	packages := []models.Package{}
	if err := t.fetchAll(ctx, &packages, ""); err != nil {
		return nil, err
	}
	return packages, nil
}

type PaymentTable struct {
	table
}

func NewPaymentTable(client *SQLClient) *PaymentTable {
	return &PaymentTable{table{client: client, name: "payment", pk: "payment_id",
		columns: []string{"payment_cust_id", "payment_package_id", "payment_amount", "payment_reference", "payment_created_on"}}}
}

func (t *PaymentTable) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	if err := t.getByID(ctx, &p, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *PaymentTable) FetchAll(ctx context.Context) ([]models.Payment, error) {
	payments := []models.Payment{}
	if err := t.fetchAll(ctx, &payments, ""); err != nil {
		return nil, err
	}
	return payments, nil
}

type AuditTable struct {
	table
}

func NewAuditTable(client *SQLClient) *AuditTable {
	return &AuditTable{table{client: client, name: "audit", pk: "audit_id",
		columns: []string{"audit_payment_id", "audit_created_on", "audit_message", "audit_message_comment"}}}
}

func (t *AuditTable) GetByID(ctx context.Context, id int64) (*models.Audit, error) {
	var a models.Audit
	if err := t.getByID(ctx, &a, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *AuditTable) FetchAll(ctx context.Context) ([]models.Audit, error) {
	audits := []models.Audit{}
	if err := t.fetchAll(ctx, &audits, ""); err != nil {
		return nil, err
	}
	return audits, nil
}
