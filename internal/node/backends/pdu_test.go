package backends

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosnmp/gosnmp"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

type fakeSNMP struct {
	value   any
	varType gosnmp.Asn1BER
	status  gosnmp.SNMPError

	sets []gosnmp.SnmpPDU
	gets [][]string
}

func (f *fakeSNMP) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	f.gets = append(f.gets, oids)
	return &gosnmp.SnmpPacket{
		Error: f.status,
		Variables: []gosnmp.SnmpPDU{{
			Name:  oids[0],
			Type:  f.varType,
			Value: f.value,
		}},
	}, nil
}

func (f *fakeSNMP) Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) {
	f.sets = append(f.sets, pdus...)
	return &gosnmp.SnmpPacket{Error: f.status, Variables: pdus}, nil
}

func newTestPDUConnector(fake *fakeSNMP) *PDUConnector {
	return &PDUConnector{client: fake, oid: outletCtlOID + ".4"}
}

func TestPDUConnector_Issue(t *testing.T) {
	fake := &fakeSNMP{}
	c := newTestPDUConnector(fake)
	ctx := context.Background()

	for _, action := range []domain.Action{domain.ActionStart, domain.ActionStop, domain.ActionReboot} {
		if err := c.Issue(ctx, action); err != nil {
			t.Fatalf("Issue(%s): unexpected error: %v", action, err)
		}
	}

	type set struct {
		Name  string
		Type  gosnmp.Asn1BER
		Value any
	}
	var got []set
	for _, pdu := range fake.sets {
		got = append(got, set{Name: pdu.Name, Type: pdu.Type, Value: pdu.Value})
	}

	oid := ".1.3.6.1.4.1.318.1.1.4.4.2.1.3.4"
	want := []set{
		{Name: oid, Type: gosnmp.Integer, Value: 1},
		{Name: oid, Type: gosnmp.Integer, Value: 2},
		{Name: oid, Type: gosnmp.Integer, Value: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("set PDUs mismatch (-want +got):\n%s", diff)
	}
}

func TestPDUConnector_IssueRejected(t *testing.T) {
	fake := &fakeSNMP{status: gosnmp.NoAccess}
	err := newTestPDUConnector(fake).Issue(context.Background(), domain.ActionStop)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPDUConnector_PowerState(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    domain.PowerState
		wantErr bool
	}{
		{"on", 1, domain.PowerOn, false},
		{"off", 2, domain.PowerOff, false},
		{"unknown", 7, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestPDUConnector(&fakeSNMP{value: tt.value, varType: gosnmp.Integer})
			got, err := c.PowerState(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && got.State != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got.State)
			}
		})
	}
}

func TestPDUConnector_NoSuchOutlet(t *testing.T) {
	c := newTestPDUConnector(&fakeSNMP{varType: gosnmp.NoSuchInstance})
	_, err := c.PowerState(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterPDU_InvalidOutlet(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	RegisterPDU()

	for _, id := range []string{"", "zero", "0"} {
		_, err := Get(context.Background(), domain.NodeRef{Backend: "pdu", ID: id, Address: "pdu1"}, nil)
		if err == nil {
			t.Errorf("expected error for outlet %q", id)
		}
	}
}
