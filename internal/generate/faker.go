package generate

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ── Word pools ──

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
	"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Charles", "Karen", "Christopher", "Lisa", "Daniel", "Nancy",
	"Matthew", "Betty", "Anthony", "Margaret", "Mark", "Sandra", "Donald", "Ashley",
	"Steven", "Dorothy", "Paul", "Kimberly", "Andrew", "Emily", "Joshua", "Donna",
	"Kenneth", "Michelle", "Kevin", "Carol", "Brian", "Amanda", "George", "Melissa",
	"Arjun", "Priya", "Rahul", "Ananya", "Vikram", "Kavya", "Rohan", "Meera",
	"Aditya", "Sneha", "Karan", "Divya", "Nikhil", "Pooja", "Sanjay", "Isha",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
	"Jackson", "Martin", "Lee", "Thompson", "White", "Harris", "Clark", "Lewis",
	"Sharma", "Verma", "Patel", "Gupta", "Singh", "Kumar", "Reddy", "Nair",
	"Iyer", "Mehta", "Joshi", "Desai", "Rao", "Chopra", "Malhotra", "Kapoor",
}

var cities = []string{
	"Mumbai", "Delhi", "Bangalore", "Hyderabad", "Chennai", "Kolkata", "Pune",
	"Ahmedabad", "Jaipur", "Lucknow", "Surat", "Kanpur", "Nagpur", "Indore",
	"Bhopal", "Patna", "Vadodara", "Coimbatore", "Kochi", "Visakhapatnam",
}

var states = []string{
	"Maharashtra", "Delhi", "Karnataka", "Telangana", "Tamil Nadu", "West Bengal",
	"Gujarat", "Rajasthan", "Uttar Pradesh", "Madhya Pradesh", "Bihar", "Kerala",
	"Andhra Pradesh", "Punjab", "Haryana", "Odisha",
}

var productWords = []string{
	"premium", "classic", "modern", "compact", "deluxe", "essential", "advanced",
	"smart", "portable", "wireless", "organic", "natural", "digital", "vintage",
	"elegant", "durable", "flexible", "ultra", "pro", "max", "lite", "prime",
	"fusion", "aero", "nova", "zen", "apex", "core", "edge", "flux",
}

var companySuffixes = []string{
	"Industries", "Enterprises", "Traders", "Retail", "Brands", "Group",
	"International", "Corporation", "Solutions", "Imports",
}

var streetNames = []string{
	"MG Road", "Park Street", "Brigade Road", "Linking Road", "Anna Salai",
	"Nehru Place", "Church Street", "Hill Road", "Station Road", "Mall Road",
	"Ring Road", "Main Bazaar", "Gandhi Nagar", "Civil Lines", "Sector 17",
}

// Faker produces pseudo-random field values from static word pools.
// All draws go through a single rand source so runs are reproducible
// for a fixed seed.
type Faker struct {
	rng *rand.Rand
}

// NewFaker creates a Faker backed by the given source
func NewFaker(rng *rand.Rand) *Faker {
	return &Faker{rng: rng}
}

func (f *Faker) pick(pool []string) string {
	return pool[f.rng.Intn(len(pool))]
}

// FirstName returns a random first name
func (f *Faker) FirstName() string {
	return f.pick(firstNames)
}

// LastName returns a random last name
func (f *Faker) LastName() string {
	return f.pick(lastNames)
}

// City returns a random city
func (f *Faker) City() string {
	return f.pick(cities)
}

// State returns a random state
func (f *Faker) State() string {
	return f.pick(states)
}

// Word returns a random capitalized product word
func (f *Faker) Word() string {
	w := f.pick(productWords)
	return strings.ToUpper(w[:1]) + w[1:]
}

// Company returns a random company name
func (f *Faker) Company() string {
	return fmt.Sprintf("%s %s", f.LastName(), f.pick(companySuffixes))
}

// Phone returns a 10-digit phone number
func (f *Faker) Phone() string {
	var b strings.Builder
	b.WriteByte(byte('6' + f.rng.Intn(4))) // Indian mobile numbers start 6-9
	for i := 0; i < 9; i++ {
		b.WriteByte(byte('0' + f.rng.Intn(10)))
	}
	return b.String()
}

// DateBetween returns a random date in [start, end], truncated to the day
func (f *Faker) DateBetween(start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours()/24) + 1
	return start.AddDate(0, 0, f.rng.Intn(days))
}

// TimeOfDay returns a random HH:MM:SS string
func (f *Faker) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d:%02d", f.rng.Intn(24), f.rng.Intn(60), f.rng.Intn(60))
}

// Address returns a single-line street address
func (f *Faker) Address() string {
	return fmt.Sprintf("%d %s, %s, %s %d",
		1+f.rng.Intn(999),
		f.pick(streetNames),
		f.City(),
		f.State(),
		100000+f.rng.Intn(900000),
	)
}
