package authz

import "fmt"

// Permission identifiers. Each maps to a (resource, action) pair in the catalog.
const (
	PermDashboardView = "dashboard:view"
	PermAnalyticsView = "analytics:view"

	PermReportsView   = "reports:view"
	PermReportsExport = "reports:export"

	PermUsersView     = "users:view"
	PermUsersCreate   = "users:create"
	PermUsersEdit     = "users:edit"
	PermUsersDelete   = "users:delete"
	PermUsersActivate = "users:activate"

	PermRolesView   = "roles:view"
	PermRolesCreate = "roles:create"
	PermRolesEdit   = "roles:edit"
	PermRolesDelete = "roles:delete"

	PermPatientsView           = "patients:view"
	PermPatientsCreate         = "patients:create"
	PermPatientsEdit           = "patients:edit"
	PermPatientsDelete         = "patients:delete"
	PermPatientsMedicalRecords = "patients:medical_records"

	PermDoctorsView      = "doctors:view"
	PermDoctorsCreate    = "doctors:create"
	PermDoctorsEdit      = "doctors:edit"
	PermDoctorsDelete    = "doctors:delete"
	PermDoctorsSchedules = "doctors:schedules"

	PermAppointmentsView   = "appointments:view"
	PermAppointmentsCreate = "appointments:create"
	PermAppointmentsEdit   = "appointments:edit"
	PermAppointmentsDelete = "appointments:delete"
	PermAppointmentsManage = "appointments:manage"

	PermCRMView       = "crm:view"
	PermCRMLeads      = "crm:leads"
	PermCRMContacts   = "crm:contacts"
	PermCRMDeals      = "crm:deals"
	PermCRMActivities = "crm:activities"

	PermChatbotView         = "chatbot:view"
	PermChatbotFlows        = "chatbot:flows"
	PermChatbotTemplates    = "chatbot:templates"
	PermChatbotAnalytics    = "chatbot:analytics"
	PermChatbotIntegrations = "chatbot:integrations"

	PermConversationsView   = "conversations:view"
	PermConversationsManage = "conversations:manage"

	PermPaymentsView     = "payments:view"
	PermPaymentsManage   = "payments:manage"
	PermPaymentsInvoices = "payments:invoices"

	PermSettingsView    = "settings:view"
	PermSettingsEdit    = "settings:edit"
	PermSettingsAPIKeys = "settings:api_keys"

	PermSecurityView      = "security:view"
	PermSecurityAuditLogs = "security:audit_logs"
	PermSecurityLogs      = "security:logs"

	PermNotificationsView   = "notifications:view"
	PermNotificationsManage = "notifications:manage"

	PermMessagesView = "messages:view"
	PermMessagesSend = "messages:send"

	PermIntegrationsView   = "integrations:view"
	PermIntegrationsManage = "integrations:manage"

	PermPerformanceView = "performance:view"

	PermProfileView = "profile:view"
	PermProfileEdit = "profile:edit"

	PermDynamicDataView   = "dynamic_data:view"
	PermDynamicDataManage = "dynamic_data:manage"

	PermFlowView   = "flow:view"
	PermFlowManage = "flow:manage"

	PermReviewView   = "review:view"
	PermReviewManage = "review:manage"

	PermSessionsView   = "sessions:view"
	PermSessionsManage = "sessions:manage"
	PermSessionsNotes  = "sessions:notes"
)

// Role identifiers known to the default catalog.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleDoctor     = "doctor"
	RoleNurse      = "nurse"
	RoleStaff      = "staff"
	RoleAgent      = "agent"
	RolePatient    = "patient"
	RoleDemo       = "demo"
)

// Permission is an atomic grant decomposed into a (resource, action) pair.
type Permission struct {
	ID          string
	Name        string
	Description string
	Category    string
	Resource    string
	Action      string
}

// Role groups permissions under a named category of user. Level orders roles
// for display purposes only; authorization never consults it.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []string
	Level       int
}

// Catalog is the immutable role/permission configuration injected into the
// Manager at construction. It is process-wide static data, never mutated at
// runtime.
type Catalog struct {
	permissions map[string]Permission
	roles       map[string]Role
}

// NewCatalog builds a Catalog from permission and role definitions. A role
// referencing an unknown permission id is a configuration error: the catalog
// must deny by omission, never by silently carrying dangling grants.
func NewCatalog(permissions []Permission, roles []Role) (Catalog, error) {
	permIndex := make(map[string]Permission, len(permissions))
	for _, p := range permissions {
		if p.ID == "" {
			return Catalog{}, fmt.Errorf("authz: permission without id")
		}
		if _, dup := permIndex[p.ID]; dup {
			return Catalog{}, fmt.Errorf("authz: duplicate permission %q", p.ID)
		}
		permIndex[p.ID] = p
	}
	roleIndex := make(map[string]Role, len(roles))
	for _, r := range roles {
		if r.ID == "" {
			return Catalog{}, fmt.Errorf("authz: role without id")
		}
		if _, dup := roleIndex[r.ID]; dup {
			return Catalog{}, fmt.Errorf("authz: duplicate role %q", r.ID)
		}
		for _, id := range r.Permissions {
			if _, ok := permIndex[id]; !ok {
				return Catalog{}, fmt.Errorf("authz: role %q references unknown permission %q", r.ID, id)
			}
		}
		roleIndex[r.ID] = r
	}
	return Catalog{permissions: permIndex, roles: roleIndex}, nil
}

// Permission looks up a permission definition by id.
func (c Catalog) Permission(id string) (Permission, bool) {
	p, ok := c.permissions[id]
	return p, ok
}

// Role looks up a role definition by id.
func (c Catalog) Role(id string) (Role, bool) {
	r, ok := c.roles[id]
	return r, ok
}

// Permissions returns all permission definitions.
func (c Catalog) Permissions() []Permission {
	out := make([]Permission, 0, len(c.permissions))
	for _, p := range c.permissions {
		out = append(out, p)
	}
	return out
}

// Roles returns all role definitions.
func (c Catalog) Roles() []Role {
	out := make([]Role, 0, len(c.roles))
	for _, r := range c.roles {
		out = append(out, r)
	}
	return out
}

// DefaultCatalog returns the built-in catalog for the platform.
func DefaultCatalog() Catalog {
	catalog, err := NewCatalog(defaultPermissions(), defaultRoles())
	if err != nil {
		// The built-in tables are compile-time constants; a failure here is a
		// programming error caught by the catalog tests.
		panic(err)
	}
	return catalog
}

func defaultPermissions() []Permission {
	return []Permission{
		{ID: PermDashboardView, Name: "View Dashboard", Description: "Access to main dashboard", Category: "dashboard", Resource: "dashboard", Action: "view"},
		{ID: PermAnalyticsView, Name: "View Analytics", Description: "Access to analytics and reports", Category: "analytics", Resource: "analytics", Action: "view"},
		{ID: PermReportsView, Name: "View Reports", Description: "Access to system reports", Category: "reports", Resource: "reports", Action: "view"},
		{ID: PermReportsExport, Name: "Export Reports", Description: "Export reports to various formats", Category: "reports", Resource: "reports", Action: "export"},

		{ID: PermUsersView, Name: "View Users", Description: "View user list and details", Category: "users", Resource: "users", Action: "view"},
		{ID: PermUsersCreate, Name: "Create Users", Description: "Create new users", Category: "users", Resource: "users", Action: "create"},
		{ID: PermUsersEdit, Name: "Edit Users", Description: "Edit user information", Category: "users", Resource: "users", Action: "edit"},
		{ID: PermUsersDelete, Name: "Delete Users", Description: "Delete users from system", Category: "users", Resource: "users", Action: "delete"},
		{ID: PermUsersActivate, Name: "Activate Users", Description: "Activate or deactivate users", Category: "users", Resource: "users", Action: "activate"},

		{ID: PermRolesView, Name: "View Roles", Description: "View roles and permissions", Category: "roles", Resource: "roles", Action: "view"},
		{ID: PermRolesCreate, Name: "Create Roles", Description: "Create new roles", Category: "roles", Resource: "roles", Action: "create"},
		{ID: PermRolesEdit, Name: "Edit Roles", Description: "Edit role permissions", Category: "roles", Resource: "roles", Action: "edit"},
		{ID: PermRolesDelete, Name: "Delete Roles", Description: "Delete roles from system", Category: "roles", Resource: "roles", Action: "delete"},

		{ID: PermPatientsView, Name: "View Patients", Description: "View patient list and details", Category: "patients", Resource: "patients", Action: "view"},
		{ID: PermPatientsCreate, Name: "Create Patients", Description: "Create new patient records", Category: "patients", Resource: "patients", Action: "create"},
		{ID: PermPatientsEdit, Name: "Edit Patients", Description: "Edit patient information", Category: "patients", Resource: "patients", Action: "edit"},
		{ID: PermPatientsDelete, Name: "Delete Patients", Description: "Delete patient records", Category: "patients", Resource: "patients", Action: "delete"},
		{ID: PermPatientsMedicalRecords, Name: "Access Medical Records", Description: "View and edit medical records", Category: "patients", Resource: "medical_records", Action: "view"},

		{ID: PermDoctorsView, Name: "View Doctors", Description: "View doctor list and details", Category: "doctors", Resource: "doctors", Action: "view"},
		{ID: PermDoctorsCreate, Name: "Create Doctors", Description: "Create new doctor profiles", Category: "doctors", Resource: "doctors", Action: "create"},
		{ID: PermDoctorsEdit, Name: "Edit Doctors", Description: "Edit doctor information", Category: "doctors", Resource: "doctors", Action: "edit"},
		{ID: PermDoctorsDelete, Name: "Delete Doctors", Description: "Delete doctor profiles", Category: "doctors", Resource: "doctors", Action: "delete"},
		{ID: PermDoctorsSchedules, Name: "Manage Schedules", Description: "Manage doctor schedules", Category: "doctors", Resource: "schedules", Action: "manage"},

		{ID: PermAppointmentsView, Name: "View Appointments", Description: "View appointment list and details", Category: "appointments", Resource: "appointments", Action: "view"},
		{ID: PermAppointmentsCreate, Name: "Create Appointments", Description: "Create new appointments", Category: "appointments", Resource: "appointments", Action: "create"},
		{ID: PermAppointmentsEdit, Name: "Edit Appointments", Description: "Edit appointment details", Category: "appointments", Resource: "appointments", Action: "edit"},
		{ID: PermAppointmentsDelete, Name: "Delete Appointments", Description: "Cancel or delete appointments", Category: "appointments", Resource: "appointments", Action: "delete"},
		{ID: PermAppointmentsManage, Name: "Manage Appointments", Description: "Full appointment management", Category: "appointments", Resource: "appointments", Action: "manage"},

		{ID: PermCRMView, Name: "View CRM", Description: "Access CRM dashboard", Category: "crm", Resource: "crm", Action: "view"},
		{ID: PermCRMLeads, Name: "Manage Leads", Description: "Manage customer leads", Category: "crm", Resource: "leads", Action: "manage"},
		{ID: PermCRMContacts, Name: "Manage Contacts", Description: "Manage customer contacts", Category: "crm", Resource: "contacts", Action: "manage"},
		{ID: PermCRMDeals, Name: "Manage Deals", Description: "Manage sales deals", Category: "crm", Resource: "deals", Action: "manage"},
		{ID: PermCRMActivities, Name: "Manage Activities", Description: "Manage CRM activities", Category: "crm", Resource: "activities", Action: "manage"},

		{ID: PermChatbotView, Name: "View Chatbot", Description: "Access chatbot management", Category: "chatbot", Resource: "chatbot", Action: "view"},
		{ID: PermChatbotFlows, Name: "Manage Flows", Description: "Create and edit chatbot flows", Category: "chatbot", Resource: "flows", Action: "manage"},
		{ID: PermChatbotTemplates, Name: "Manage Templates", Description: "Manage chatbot templates", Category: "chatbot", Resource: "templates", Action: "manage"},
		{ID: PermChatbotAnalytics, Name: "View Chatbot Analytics", Description: "View chatbot analytics", Category: "chatbot", Resource: "analytics", Action: "view"},
		{ID: PermChatbotIntegrations, Name: "Manage Chatbot Integrations", Description: "Manage chatbot integrations", Category: "chatbot", Resource: "integrations", Action: "manage"},

		{ID: PermConversationsView, Name: "View Conversations", Description: "View conversation history", Category: "conversations", Resource: "conversations", Action: "view"},
		{ID: PermConversationsManage, Name: "Manage Conversations", Description: "Manage conversation flows", Category: "conversations", Resource: "conversations", Action: "manage"},

		{ID: PermPaymentsView, Name: "View Payments", Description: "View payment information", Category: "payments", Resource: "payments", Action: "view"},
		{ID: PermPaymentsManage, Name: "Manage Payments", Description: "Process and manage payments", Category: "payments", Resource: "payments", Action: "manage"},
		{ID: PermPaymentsInvoices, Name: "Manage Invoices", Description: "Create and manage invoices", Category: "payments", Resource: "invoices", Action: "manage"},

		{ID: PermSettingsView, Name: "View Settings", Description: "View system settings", Category: "settings", Resource: "settings", Action: "view"},
		{ID: PermSettingsEdit, Name: "Edit Settings", Description: "Edit system settings", Category: "settings", Resource: "settings", Action: "edit"},
		{ID: PermSettingsAPIKeys, Name: "Manage API Keys", Description: "Manage API keys and integrations", Category: "settings", Resource: "api_keys", Action: "manage"},

		{ID: PermSecurityView, Name: "View Security", Description: "Access security dashboard", Category: "security", Resource: "security", Action: "view"},
		{ID: PermSecurityAuditLogs, Name: "View Audit Logs", Description: "View system audit logs", Category: "security", Resource: "audit_logs", Action: "view"},
		{ID: PermSecurityLogs, Name: "View System Logs", Description: "View system logs", Category: "security", Resource: "logs", Action: "view"},

		{ID: PermNotificationsView, Name: "View Notifications", Description: "View system notifications", Category: "notifications", Resource: "notifications", Action: "view"},
		{ID: PermNotificationsManage, Name: "Manage Notifications", Description: "Manage notification settings", Category: "notifications", Resource: "notifications", Action: "manage"},

		{ID: PermMessagesView, Name: "View Messages", Description: "View message center", Category: "messages", Resource: "messages", Action: "view"},
		{ID: PermMessagesSend, Name: "Send Messages", Description: "Send messages to users", Category: "messages", Resource: "messages", Action: "send"},

		{ID: PermIntegrationsView, Name: "View Integrations", Description: "View system integrations", Category: "integrations", Resource: "integrations", Action: "view"},
		{ID: PermIntegrationsManage, Name: "Manage Integrations", Description: "Manage system integrations", Category: "integrations", Resource: "integrations", Action: "manage"},

		{ID: PermPerformanceView, Name: "View Performance", Description: "View system performance metrics", Category: "performance", Resource: "performance", Action: "view"},

		{ID: PermProfileView, Name: "View Profile", Description: "View own profile", Category: "profile", Resource: "profile", Action: "view"},
		{ID: PermProfileEdit, Name: "Edit Profile", Description: "Edit own profile", Category: "profile", Resource: "profile", Action: "edit"},

		{ID: PermDynamicDataView, Name: "View Dynamic Data", Description: "View dynamic data management", Category: "dynamic_data", Resource: "dynamic_data", Action: "view"},
		{ID: PermDynamicDataManage, Name: "Manage Dynamic Data", Description: "Manage dynamic data content", Category: "dynamic_data", Resource: "dynamic_data", Action: "manage"},

		{ID: PermFlowView, Name: "View Flow", Description: "View workflow management", Category: "flow", Resource: "flow", Action: "view"},
		{ID: PermFlowManage, Name: "Manage Flow", Description: "Manage workflow processes", Category: "flow", Resource: "flow", Action: "manage"},

		{ID: PermReviewView, Name: "View Reviews", Description: "View quality reviews", Category: "review", Resource: "review", Action: "view"},
		{ID: PermReviewManage, Name: "Manage Reviews", Description: "Manage quality reviews", Category: "review", Resource: "review", Action: "manage"},

		{ID: PermSessionsView, Name: "View Sessions", Description: "View therapy sessions", Category: "sessions", Resource: "sessions", Action: "view"},
		{ID: PermSessionsManage, Name: "Manage Sessions", Description: "Manage therapy sessions", Category: "sessions", Resource: "sessions", Action: "manage"},
		{ID: PermSessionsNotes, Name: "Manage Session Notes", Description: "Create and edit session notes", Category: "sessions", Resource: "session_notes", Action: "manage"},
	}
}

func defaultRoles() []Role {
	allPermissions := func() []string {
		perms := defaultPermissions()
		ids := make([]string, 0, len(perms))
		for _, p := range perms {
			ids = append(ids, p.ID)
		}
		return ids
	}

	return []Role{
		{
			ID:          RoleAdmin,
			Name:        "Administrator",
			Description: "Full system access with all permissions",
			Permissions: allPermissions(),
			Level:       100,
		},
		{
			ID:          RoleManager,
			Name:        "Manager",
			Description: "Management level access with most permissions",
			Permissions: []string{
				PermDashboardView, PermAnalyticsView, PermReportsView, PermReportsExport,
				PermUsersView, PermUsersCreate, PermUsersEdit,
				PermPatientsView, PermPatientsCreate, PermPatientsEdit,
				PermDoctorsView, PermDoctorsCreate, PermDoctorsEdit,
				PermAppointmentsView, PermAppointmentsCreate, PermAppointmentsEdit, PermAppointmentsManage,
				PermCRMView, PermCRMLeads, PermCRMContacts, PermCRMDeals, PermCRMActivities,
				PermChatbotView, PermChatbotFlows, PermChatbotTemplates, PermChatbotAnalytics,
				PermConversationsView, PermConversationsManage,
				PermPaymentsView, PermPaymentsManage, PermPaymentsInvoices,
				PermSettingsView,
				PermNotificationsView, PermNotificationsManage,
				PermMessagesView, PermMessagesSend,
				PermIntegrationsView, PermPerformanceView,
				PermProfileView, PermProfileEdit,
				PermDynamicDataView, PermDynamicDataManage,
				PermFlowView, PermFlowManage,
				PermReviewView, PermReviewManage,
				PermSessionsView, PermSessionsManage, PermSessionsNotes,
			},
			Level: 80,
		},
		{
			ID:          RoleSupervisor,
			Name:        "Supervisor",
			Description: "Supervisory access with limited management permissions",
			Permissions: []string{
				PermDashboardView, PermAnalyticsView, PermReportsView,
				PermUsersView,
				PermPatientsView, PermPatientsCreate, PermPatientsEdit, PermPatientsMedicalRecords,
				PermDoctorsView, PermDoctorsSchedules,
				PermAppointmentsView, PermAppointmentsCreate, PermAppointmentsEdit, PermAppointmentsManage,
				PermCRMView, PermCRMLeads, PermCRMContacts,
				PermChatbotView, PermChatbotFlows, PermChatbotAnalytics,
				PermConversationsView, PermConversationsManage,
				PermPaymentsView,
				PermNotificationsView,
				PermMessagesView, PermMessagesSend,
				PermProfileView, PermProfileEdit,
				PermDynamicDataView,
				PermFlowView, PermReviewView,
				PermSessionsView, PermSessionsManage, PermSessionsNotes,
			},
			Level: 60,
		},
		{
			ID:          RoleDoctor,
			Name:        "Doctor",
			Description: "Doctor access with patient and appointment management",
			Permissions: []string{
				PermDashboardView,
				PermPatientsView, PermPatientsMedicalRecords,
				PermAppointmentsView, PermAppointmentsCreate, PermAppointmentsEdit, PermAppointmentsManage,
				PermConversationsView,
				PermNotificationsView,
				PermMessagesView,
				PermProfileView, PermProfileEdit,
				PermSessionsView, PermSessionsManage, PermSessionsNotes,
			},
			Level: 40,
		},
		{
			ID:          RoleNurse,
			Name:        "Nurse",
			Description: "Nurse access with limited patient management",
			Permissions: []string{
				PermDashboardView,
				PermPatientsView,
				PermAppointmentsView,
				PermConversationsView,
				PermNotificationsView,
				PermMessagesView,
				PermProfileView, PermProfileEdit,
				PermSessionsView,
			},
			Level: 30,
		},
		{
			ID:          RoleStaff,
			Name:        "Staff",
			Description: "Staff access with basic operational permissions",
			Permissions: []string{
				PermDashboardView,
				PermAppointmentsView, PermAppointmentsCreate, PermAppointmentsEdit,
				PermConversationsView,
				PermNotificationsView,
				PermMessagesView,
				PermProfileView, PermProfileEdit,
			},
			Level: 20,
		},
		{
			ID:          RoleAgent,
			Name:        "Agent",
			Description: "Customer service agent access",
			Permissions: []string{
				PermDashboardView,
				PermConversationsView, PermConversationsManage,
				PermCRMView, PermCRMLeads, PermCRMContacts,
				PermChatbotView, PermChatbotFlows,
				PermNotificationsView,
				PermMessagesView, PermMessagesSend,
				PermProfileView, PermProfileEdit,
			},
			Level: 15,
		},
		{
			ID:          RolePatient,
			Name:        "Patient",
			Description: "Patient access to own data and appointments",
			Permissions: []string{
				PermProfileView, PermProfileEdit,
				PermAppointmentsView, PermAppointmentsCreate,
				PermNotificationsView,
				PermMessagesView,
			},
			Level: 10,
		},
		{
			ID:          RoleDemo,
			Name:        "Demo User",
			Description: "Demo access with read-only permissions",
			Permissions: []string{
				PermDashboardView, PermAnalyticsView, PermReportsView,
				PermUsersView, PermPatientsView, PermDoctorsView,
				PermAppointmentsView, PermCRMView, PermChatbotView,
				PermConversationsView, PermPaymentsView, PermSettingsView,
				PermNotificationsView, PermMessagesView, PermIntegrationsView,
				PermPerformanceView, PermProfileView, PermDynamicDataView,
				PermFlowView, PermReviewView, PermSessionsView,
			},
			Level: 5,
		},
	}
}
