package reseller

import "testing"

func TestIsSuccess(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"exact status", `{"status":"success"}`, true},
		{"capitalised Status", `{"Status":"successful","id":12}`, true},
		{"Status other casing", `{"Status":"SUCCESSFUL"}`, true},
		{"message mentions success", `{"message":"Transaction Successful"}`, true},
		{"api_response", `{"api_response":"Airtime purchase was successful"}`, true},
		{"failed status", `{"status":"failed","message":"insufficient balance"}`, false},
		{"unsuccessful message", `{"message":"Transaction unsuccessful"}`, false},
		{"status value must match exactly", `{"status":"Success"}`, false},
		{"status field wrong type", `{"status":true}`, false},
		{"not json", `<html>502</html>`, false},
		{"empty", ``, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSuccess([]byte(tc.body)); got != tc.want {
				t.Fatalf("IsSuccess(%s) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message([]byte(`{"Status":"failed","api_response":"Invalid meter number"}`)); got != "Invalid meter number" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message([]byte(`[]`)); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}
