// Package types provides type definitions for structured data used throughout the opportunity miner.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "slices"

// Category is one entry of the fixed business taxonomy.
type Category struct {
	Name          string   `json:"name"`
	SubCategories []string `json:"sub_categories"`
}

// Categories is the closed set of categories a judgement may use, in display order.
var Categories = []Category{
	{Name: "SaaS", SubCategories: []string{"CRM", "HR Tech", "Project Management", "BI & Analytics", "MarTech", "Customer Support", "Collaboration", "Vertical SaaS", "API-as-a-Service", "No-code/Low-code"}},
	{Name: "E-commerce", SubCategories: []string{"Dropshipping Tools", "Subscription Boxes", "Personalized Products", "Inventory Management", "Logistics & Fulfillment", "Headless Commerce", "Live Shopping", "Conversion Optimization"}},
	{Name: "Health & Wellness", SubCategories: []string{"Telemedicine", "Mental Health Apps", "Fitness Trackers", "Nutrition Planning", "Wearables", "Personalized Supplements", "Sleep Tech", "Corporate Wellness", "FemTech"}},
	{Name: "FinTech", SubCategories: []string{"Personal Finance", "Robo-Advisors", "P2P Lending", "DeFi", "Neobanks", "Payment Processing", "InsurTech", "RegTech", "Wealth Management", "Expense Tracking"}},
	{Name: "Education", SubCategories: []string{"Online Course Platforms (LMS)", "Language Learning", "AI Tutors", "Virtual Labs", "Test Prep", "Skill-based Bootcamps", "Special Needs Tech", "Micro-learning"}},
	{Name: "Developer Tools", SubCategories: []string{"CI/CD", "Code Quality", "API Management", "Cloud Cost Management", "Debugging Tools", "Infrastructure as Code (IaC)", "Security Scanning", "Error Monitoring"}},
	{Name: "AI/ML", SubCategories: []string{"No-code AI Platforms", "Data Labeling", "MLOps", "AI-driven Analytics", "Chatbot Builders", "Recommendation Engines", "NLP Services", "Synthetic Data Generation"}},
	{Name: "Productivity", SubCategories: []string{"Task Management", "Note-taking Apps", "Calendar & Scheduling", "Habit Trackers", "Personal Knowledge Management (PKM)", "Email Management", "Automation Tools"}},
	{Name: "Marketing", SubCategories: []string{"Social Media Management", "SEO Tools", "Email Automation", "Content Marketing", "Affiliate Management", "Influencer Platforms", "Customer Data Platforms (CDP)"}},
	{Name: "Content Creation", SubCategories: []string{"Video Editing", "Graphic Design", "Writing Assistants", "Podcast Editing", "Streaming Tools", "Monetization Platforms", "Newsletter Platforms"}},
	{Name: "Gaming", SubCategories: []string{"Indie Game Dev Tools", "Esports Coaching", "In-game Asset Marketplaces", "Cloud Gaming", "AI-powered NPCs", "Modding Platforms", "Game Discovery", "Fitness Gaming"}},
	{Name: "Real Estate", SubCategories: []string{"Property Management", "Virtual Tours", "Investment Crowdfunding", "iBuyer Platforms", "Real Estate CRM", "Mortgage Tech", "Construction Tech (ConTech)"}},
	{Name: "Travel", SubCategories: []string{"Itinerary Planners", "Budget Travel Tools", "Sustainable Tourism", "AI Travel Agents", "Last-minute Deals", "Corporate Travel", "Local Experience Marketplaces"}},
	{Name: "Social Media", SubCategories: []string{"Niche Social Networks", "Content Scheduling", "Social Listening", "User-Generated Content (UGC) Platforms", "Creator Monetization", "Decentralized Social Media"}},
	{Name: "Other", SubCategories: []string{"Miscellaneous", "Uncategorized"}},
}

// CategoryNames returns the category names in taxonomy order.
func CategoryNames() []string {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, c.Name)
	}
	return names
}

// FindCategory looks up a category by exact name.
func FindCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// IsValidCategory reports whether name is one of the taxonomy categories.
func IsValidCategory(name string) bool {
	_, ok := FindCategory(name)
	return ok
}

// IsValidSubCategory reports whether sub belongs to the sub-list of category.
func IsValidSubCategory(category, sub string) bool {
	c, ok := FindCategory(category)
	if !ok {
		return false
	}
	return slices.Contains(c.SubCategories, sub)
}

// CategoryMap returns the taxonomy as name -> sub-categories, the shape the classifier prompt uses.
func CategoryMap() map[string][]string {
	m := make(map[string][]string, len(Categories))
	for _, c := range Categories {
		m[c.Name] = slices.Clone(c.SubCategories)
	}
	return m
}
