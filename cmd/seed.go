package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/department"
	"github.com/civicgrid/grievd/internal/routing"
)

var seedDepartments = []department.Department{
	{Name: "Public Works", Description: "Handles roads, drainage, and infrastructure", SLADays: 7, ContactEmail: "publicworks@city.gov"},
	{Name: "Water Supply", Description: "Handles water supply and pipeline issues", SLADays: 3, ContactEmail: "water@city.gov"},
	{Name: "Sanitation", Description: "Handles garbage, sewage, and cleanliness", SLADays: 2, ContactEmail: "sanitation@city.gov"},
	{Name: "Electricity", Description: "Handles power supply and streetlights", SLADays: 1, ContactEmail: "electricity@city.gov"},
	{Name: "Health", Description: "Handles public health and medical services", SLADays: 1, ContactEmail: "health@city.gov"},
	{Name: "Transport", Description: "Handles public transport and traffic", SLADays: 5, ContactEmail: "transport@city.gov"},
	{Name: "Environment", Description: "Handles pollution and environmental issues", SLADays: 7, ContactEmail: "environment@city.gov"},
	{Name: "General Administration", Description: "Handles miscellaneous complaints", SLADays: 10, ContactEmail: "generaladministration@city.gov"},
}

type seedRule struct {
	category string
	urgency  classify.Urgency
	dept     string
	priority int
}

var seedRules = []seedRule{
	{"sewage", classify.UrgencyCritical, "Sanitation", 10},
	{"sewage", classify.UrgencyHigh, "Sanitation", 5},
	{"sewage", "", "Sanitation", 1},
	{"drainage", "", "Public Works", 1},
	{"water", classify.UrgencyCritical, "Water Supply", 10},
	{"water", "", "Water Supply", 1},
	{"electricity", classify.UrgencyCritical, "Electricity", 10},
	{"electricity", "", "Electricity", 1},
	{"streetlight", "", "Electricity", 2},
	{"road", "", "Public Works", 1},
	{"pothole", "", "Public Works", 2},
	{"garbage", "", "Sanitation", 1},
	{"cleanliness", "", "Sanitation", 1},
	{"health", "", "Health", 1},
	{"mosquito", "", "Health", 2},
	{"disease", classify.UrgencyCritical, "Health", 10},
	{"transport", "", "Transport", 1},
	{"traffic", "", "Transport", 1},
	{"pollution", "", "Environment", 1},
	{"noise", "", "Environment", 1},
	{"tree", "", "Environment", 1},
	{"other", "", "General Administration", 0},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed departments and routing rules",
	Long: `Creates the standard municipal departments, the overflow department
escalations target, and the default routing rule set. Safe to run more
than once: existing departments are kept and rules are only created on
an empty rule table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack(newLogger())
		if err != nil {
			return err
		}
		defer s.close()
		ctx := cmd.Context()

		deptIDs := map[string]string{}
		toCreate := append([]department.Department{}, seedDepartments...)
		toCreate = append(toCreate, department.Department{
			Name:        s.cfg.OverflowDepartment,
			Description: "Receives escalated complaints",
			SLADays:     3,
		})

		created := 0
		for _, d := range toCreate {
			existing, err := s.departments.GetByName(ctx, s.db, d.Name)
			if err != nil {
				return fmt.Errorf("checking department %s: %w", d.Name, err)
			}
			if existing != nil {
				deptIDs[d.Name] = existing.ID
				continue
			}
			d.Active = true
			dept, err := s.departments.Create(ctx, d)
			if err != nil {
				return fmt.Errorf("creating department %s: %w", d.Name, err)
			}
			deptIDs[d.Name] = dept.ID
			created++
		}
		fmt.Printf("Departments: %d created, %d existing\n", created, len(toCreate)-created)

		existing, err := s.rules.List(ctx)
		if err != nil {
			return fmt.Errorf("listing rules: %w", err)
		}
		if len(existing) > 0 {
			fmt.Printf("Routing rules: %d already present, skipping\n", len(existing))
			return nil
		}

		for _, sr := range seedRules {
			rule := routing.Rule{
				Category:     &sr.category,
				DepartmentID: deptIDs[sr.dept],
				Priority:     sr.priority,
				Active:       true,
			}
			if sr.urgency != "" {
				u := sr.urgency
				rule.Urgency = &u
			}
			if _, err := s.rules.Create(ctx, rule); err != nil {
				return fmt.Errorf("creating rule %s/%s: %w", sr.category, sr.urgency, err)
			}
		}
		fmt.Printf("Routing rules: %d created\n", len(seedRules))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
